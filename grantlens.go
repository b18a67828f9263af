// Package grantlens explores research-funding open data.
//
// The dataset package loads the eight grant tables (grants, persons,
// institutes, disciplines, keywords and their associations) from a CSV
// directory, S3 or a SQL database. The pages package turns the loaded data
// and a set of widget selections into render-ready pages built on the
// engine's filter, join, aggregate and chart pipeline:
//
//	ds, err := dataset.Load(ctx, dataset.NewDirSource("data"), schema.Default())
//	reg := pages.New(ds, pages.WithTopN(10))
//	page, err := reg.Render(pages.Trends, map[string]string{"year": "2015,2020"})
//
// Every computation is local and read-only; the server and cmd/grantlens
// packages are thin presentation layers over pages.
package grantlens
