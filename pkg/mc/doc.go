// Package mc contains the numeric core of the forward option pricer:
// parameter validation, per-worker random sampling, GBM terminal prices,
// call payoffs and the batch reduction to a mean estimate.
//
// Nothing in this package shares mutable state. A batch owns the Sampler it
// is given, so two batches built from the same seed produce identical
// estimates.
package mc
