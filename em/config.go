package em

import "time"

// Config bundles run_em's "config: {threshold, max_iter, timeout_s,
// output_dir?}" (§6.5) plus the concurrency width for the E-step fan-out
// (§5). Populated through the Option functional-options closures,
// matching chart.Option / earley.Option in the rest of this module.
type Config struct {
	Threshold    float64
	MaxIter      int
	GraphTimeout time.Duration
	OutputDir    string
	Concurrency  int // 0 selects runtime.GOMAXPROCS(0)
	PoolSize     int // forwarded to chart.WithPoolSize for every per-graph parse; 0 = unbounded
}

// Option mutates a Config.
type Option func(*Config)

// WithThreshold sets the log-likelihood convergence threshold τ (§4.5):
// EM stops once |LL_t - LL_{t-1}| < t.
func WithThreshold(t float64) Option {
	return func(c *Config) { c.Threshold = t }
}

// WithMaxIter caps the number of EM iterations regardless of
// convergence.
func WithMaxIter(n int) Option {
	return func(c *Config) { c.MaxIter = n }
}

// WithGraphTimeout sets the per-graph wall-clock budget for one E-step
// (parse, if not already cached, plus inside-outside): a graph exceeding
// it contributes zero counts for the current iteration and is retried
// next iteration (§5, §7).
func WithGraphTimeout(d time.Duration) Option {
	return func(c *Config) { c.GraphTimeout = d }
}

// WithOutputDir configures the directory Run writes a weight-history CSV
// (§6.3) to after every iteration. Empty (the default) disables
// checkpoint files.
func WithOutputDir(dir string) Option {
	return func(c *Config) { c.OutputDir = dir }
}

// WithConcurrency caps how many graphs' E-steps run concurrently. 0 (the
// default) selects runtime.GOMAXPROCS(0). Ignored under Online mode,
// which never runs two graphs' E/M concurrently (§5).
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Concurrency = n }
}

// WithPoolSize caps the number of forest.Node allocations any single
// graph's parse may make, forwarded to chart.WithPoolSize (§4.3, §7): a
// graph whose parse would exceed it fails like an unparsable graph:
// parseOnce caches the failure, so the graph contributes nothing to
// this or any later iteration and is never parsed again within the Run,
// while the other graphs keep training.
func WithPoolSize(n int) Option {
	return func(c *Config) { c.PoolSize = n }
}

func defaultConfig() Config {
	return Config{
		Threshold:    1e-6,
		MaxIter:      50,
		GraphTimeout: 0,
		Concurrency:  0,
		PoolSize:     0,
	}
}
