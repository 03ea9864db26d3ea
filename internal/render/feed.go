package render

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blogsmith/blogsmith/internal/content"
)

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Xmlns   string      `xml:"xmlns,attr"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Links   []atomLink  `xml:"link"`
	Author  *atomPerson `xml:"author,omitempty"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomEntry struct {
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Link    atomLink    `xml:"link"`
	Summary string      `xml:"summary,omitempty"`
	Content atomContent `xml:"content"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

// RenderFeed writes an Atom feed over the given posts (assumed newest first).
//
// Entry timestamps use each document's effective date, so git-derived
// lastmod values surface in feed readers.
func (e *Engine) RenderFeed(w io.Writer, posts []*content.Document) error {
	base := strings.TrimRight(e.site.BaseURL, "/")
	if base == "" {
		base = "/"
	}

	updated := time.Time{}
	entries := make([]atomEntry, 0, len(posts))
	for _, doc := range posts {
		when := doc.EffectiveDate()
		if when.After(updated) {
			updated = when
		}
		url := base + doc.Permalink()
		entries = append(entries, atomEntry{
			Title:   doc.Title,
			ID:      url,
			Updated: when.UTC().Format(time.RFC3339),
			Link:    atomLink{Href: url, Rel: "alternate", Type: "text/html"},
			Summary: doc.Summary,
			Content: atomContent{Type: "html", Body: doc.HTML},
		})
	}
	if updated.IsZero() {
		updated = time.Now()
	}

	feed := atomFeed{
		Xmlns:   "http://www.w3.org/2005/Atom",
		Title:   e.site.Title,
		ID:      base + "/",
		Updated: updated.UTC().Format(time.RFC3339),
		Links: []atomLink{
			{Href: base + "/feed.xml", Rel: "self", Type: "application/atom+xml"},
			{Href: base + "/", Rel: "alternate", Type: "text/html"},
		},
		Entries: entries,
	}
	if e.site.Author != "" {
		feed.Author = &atomPerson{Name: e.site.Author}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return fmt.Errorf("encode atom feed: %w", err)
	}
	return enc.Close()
}
