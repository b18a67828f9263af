package engine

import "go.uber.org/zap"

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger         *zap.Logger
	DefaultMeasure string // measure used when Query.Measure is empty
}

// WithLogger routes pipeline debug logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithDefaultMeasure sets the measure to aggregate when Query.Measure is empty.
func WithDefaultMeasure(measure string) Option {
	return func(c *config) {
		c.DefaultMeasure = measure
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
