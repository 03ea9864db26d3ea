package linkcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractLinksFromReader(t *testing.T) {
	page := `<html><body>
<a href="/posts/hello/">Hello</a>
<a href="https://example.com/about/">About</a>
<a href="https://other.example.org/">Elsewhere</a>
<a href="#section">Anchor</a>
<a href="mailto:me@example.com">Mail</a>
<img src="/img/cover.png" alt="cover">
<link rel="stylesheet" href="/css/site.css">
</body></html>`

	links, err := ExtractLinksFromReader(strings.NewReader(page), "https://example.com")
	require.NoError(t, err)
	require.Len(t, links, 7)

	byURL := map[string]Link{}
	for _, l := range links {
		byURL[l.URL] = l
	}

	require.True(t, byURL["/posts/hello/"].Internal)
	require.Equal(t, "Hello", byURL["/posts/hello/"].Text)
	require.True(t, byURL["https://example.com/about/"].Internal, "same host counts as internal")
	require.False(t, byURL["https://other.example.org/"].Internal)
	require.False(t, byURL["#section"].Internal)
	require.False(t, byURL["mailto:me@example.com"].Internal)
	require.Equal(t, "cover", byURL["/img/cover.png"].Text)
	require.Equal(t, "stylesheet", byURL["/css/site.css"].Text)
}

func writeOutput(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestCheckerFindsBrokenInternalLinks(t *testing.T) {
	out := t.TempDir()
	writeOutput(t, out, "index.html", `<a href="/posts/hello/">ok</a> <a href="/posts/missing/">bad</a>`)
	writeOutput(t, out, "posts/hello/index.html", `<a href="/">home</a> <img src="/img/gone.png">`)
	writeOutput(t, out, "css/site.css", "body{}")

	c, err := NewChecker(out, "https://example.com")
	require.NoError(t, err)
	broken, err := c.Check()
	require.NoError(t, err)

	require.Len(t, broken, 2)
	targets := []string{broken[0].Target, broken[1].Target}
	require.Contains(t, targets, "posts/missing")
	require.Contains(t, targets, "img/gone.png")
}

func TestCheckerPassesCleanSite(t *testing.T) {
	out := t.TempDir()
	writeOutput(t, out, "index.html", `<a href="/posts/hello/">post</a> <link rel="stylesheet" href="/css/site.css">`)
	writeOutput(t, out, "posts/hello/index.html", `<a href="/">home</a> <a href="https://golang.org/">ext</a> <a href="#top">top</a>`)
	writeOutput(t, out, "css/site.css", "body{}")

	c, err := NewChecker(out, "https://example.com")
	require.NoError(t, err)
	broken, err := c.Check()
	require.NoError(t, err)
	require.Empty(t, broken)
}

func TestCheckerResolvesRelativeLinks(t *testing.T) {
	out := t.TempDir()
	writeOutput(t, out, "posts/hello/index.html", `<a href="../other/">sibling</a> <a href="../nope/">missing</a>`)
	writeOutput(t, out, "posts/other/index.html", "ok")

	c, err := NewChecker(out, "https://example.com")
	require.NoError(t, err)
	broken, err := c.Check()
	require.NoError(t, err)

	require.Len(t, broken, 1)
	require.Equal(t, "posts/nope", broken[0].Target)
	require.Equal(t, "posts/hello/index.html", broken[0].Page)
}
