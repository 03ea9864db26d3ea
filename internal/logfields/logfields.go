package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeySlug       = "slug"
	KeyStage      = "stage"
	KeyBuildID    = "build_id"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }
func Slug(s string) slog.Attr     { return slog.String(KeySlug, s) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Kind(k string) slog.Attr     { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr       { return slog.Int(KeyCount, n) }

func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000.0)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
