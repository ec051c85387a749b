// Package report shapes coordinator output for presentation: parameter
// sweeps (one request per varied value), plot series ordered by the swept
// value, and batch summaries. It does no rendering.
package report
