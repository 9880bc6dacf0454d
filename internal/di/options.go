package di

// DryRun marks the container for plan-only runs; no cloud resource is
// touched when set.
type DryRun bool

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithDryRun marks the resulting container as plan-only.
func WithDryRun(dryRun bool) Option {
	return func(opts *options) {
		opts.dryRun = dryRun
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	providers []any
	dryRun    bool
}
