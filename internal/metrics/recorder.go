// Package metrics records build and dev-server metrics.
package metrics

import "time"

// Recorder abstracts metric emission so the builder does not depend on a
// concrete backend. The dev server wires a Prometheus implementation; plain
// CLI builds use the no-op.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
	IncBuildOutcome(outcome string)
	SetPagesRendered(n int)
	SetLiveReloadClients(n int)
}

// Noop discards all observations.
type Noop struct{}

func (Noop) ObserveBuildDuration(time.Duration)         {}
func (Noop) ObserveStageDuration(string, time.Duration) {}
func (Noop) IncBuildOutcome(string)                     {}
func (Noop) SetPagesRendered(int)                       {}
func (Noop) SetLiveReloadClients(int)                   {}
