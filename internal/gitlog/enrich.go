package gitlog

import (
	"log/slog"

	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/logfields"
)

// Enrich attaches git-derived lastmod timestamps to the given documents.
//
// A document gets a Lastmod only when its path has two or more recorded
// revisions; otherwise the field stays nil and rendering falls back to the
// declared date. repo may be nil (content outside any checkout), in which
// case Enrich is a no-op. Enrichment never fails a build.
func Enrich(repo *Repo, docs []*content.Document) int {
	if repo == nil {
		return 0
	}

	enriched := 0
	for _, doc := range docs {
		if doc.RepoPath == "" {
			rel, ok := repo.RelPath(doc.SourcePath)
			if !ok {
				continue
			}
			doc.RepoPath = rel
		}

		when, ok := repo.LastModified(doc.RepoPath)
		if !ok {
			continue
		}
		modified := when
		doc.Lastmod = &modified
		enriched++
		slog.Debug("Enriched document from git history",
			logfields.Path(doc.RepoPath),
			slog.Time("lastmod", when))
	}

	if enriched > 0 {
		slog.Info("Git lastmod enrichment completed", logfields.Count(enriched))
	}
	return enriched
}
