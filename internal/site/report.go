package site

import "time"

// Build outcomes recorded in metrics and the build history.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// StageTiming captures how long one pipeline stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Report summarizes a completed (or failed) build pass.
type Report struct {
	BuildID   string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string

	Documents    int // documents that entered the pipeline
	Enriched     int // documents that received a git lastmod
	PagesWritten int
	PagesSkipped int // unchanged pages skipped via the build cache
	AssetsCopied int

	Stages []StageTiming
}
