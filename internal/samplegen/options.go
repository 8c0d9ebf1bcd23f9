package samplegen

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed fixes the random source so output is reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithBatters sets the size of the batter id pool.
func WithBatters(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.batters = n
		}
	}
}

// WithFirstBatterID sets the lowest generated batter id.
func WithFirstBatterID(id int) Option {
	return func(g *Generator) {
		if id > 0 {
			g.firstBatterID = id
		}
	}
}
