package pages

import (
	"github.com/spektr-org/grantlens/engine"
)

const networkDescription = `This network visualization highlights the collaborations between the top 100 researchers in the SNSF dataset. Each node represents a researcher, and each edge between two nodes indicates that they co-applied for at least one research grant.

Larger and darker nodes are researchers with more collaborations. Tightly clustered groups are collaborative communities or research teams. Bridging nodes connect clusters and act as intermediaries between research groups.

The graph was generated with Gephi from grant co-application records.`

// buildCollaboration shows the precomputed network image. The image is an
// opaque asset; nothing is derived from the dataset.
func buildCollaboration(r *Registry, _ Values) (*Page, error) {
	p := Panel{
		Title:       "Collaboration Network",
		Kind:        engine.KindImage,
		Description: networkDescription,
	}
	if r.networkImage == "" {
		p.Empty = true
		p.EmptyMessage = "No collaboration network image is configured."
	} else {
		p.Image = NetworkImageURL
		p.Asset = r.networkImage
	}
	return &Page{Panels: []Panel{p}}, nil
}
