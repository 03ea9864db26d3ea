package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("document with front matter", func(t *testing.T) {
		doc := []byte("---\ntitle: Hello\ndate: 2026-01-02\n---\nbody text\n")

		meta, body, had, style, err := Split(doc)
		require.NoError(t, err)
		require.True(t, had)
		require.Equal(t, "title: Hello\ndate: 2026-01-02\n", string(meta))
		require.Equal(t, "body text\n", string(body))
		require.Equal(t, "\n", style.Newline)
		require.True(t, style.HasTrailingNewline)
	})

	t.Run("document without front matter", func(t *testing.T) {
		doc := []byte("# Just markdown\n")

		meta, body, had, _, err := Split(doc)
		require.NoError(t, err)
		require.False(t, had)
		require.Nil(t, meta)
		require.Equal(t, doc, body)
	})

	t.Run("empty front matter block", func(t *testing.T) {
		doc := []byte("---\n---\nbody\n")

		meta, body, had, _, err := Split(doc)
		require.NoError(t, err)
		require.True(t, had)
		require.Empty(t, meta)
		require.Equal(t, "body\n", string(body))
	})

	t.Run("missing closing delimiter", func(t *testing.T) {
		doc := []byte("---\ntitle: Broken\nno end\n")

		_, _, _, _, err := Split(doc)
		require.ErrorIs(t, err, ErrMissingClosingDelimiter)
	})

	t.Run("crlf newlines", func(t *testing.T) {
		doc := []byte("---\r\ntitle: Win\r\n---\r\nbody\r\n")

		meta, body, had, style, err := Split(doc)
		require.NoError(t, err)
		require.True(t, had)
		require.Equal(t, "\r\n", style.Newline)
		require.Equal(t, "title: Win\r\n", string(meta))
		require.Equal(t, "body\r\n", string(body))
	})
}

func TestJoinRoundTrip(t *testing.T) {
	doc := []byte("---\ntitle: Hello\n---\nbody\n")

	meta, body, had, style, err := Split(doc)
	require.NoError(t, err)
	require.Equal(t, doc, Join(meta, body, had, style))
}

func TestJoinWithoutFrontMatter(t *testing.T) {
	body := []byte("plain body\n")
	require.Equal(t, body, Join(nil, body, false, Style{Newline: "\n"}))
}

func TestParse(t *testing.T) {
	t.Run("scalar and list fields", func(t *testing.T) {
		fields, err := Parse([]byte("title: Post\ntags:\n  - go\n  - git\n"))
		require.NoError(t, err)
		require.Equal(t, "Post", fields["title"])
		require.Equal(t, []any{"go", "git"}, fields["tags"])
	})

	t.Run("empty input yields empty map", func(t *testing.T) {
		fields, err := Parse(nil)
		require.NoError(t, err)
		require.NotNil(t, fields)
		require.Empty(t, fields)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("title: [unclosed"))
		require.Error(t, err)
	})
}

func TestSerializeDeterministic(t *testing.T) {
	fields := map[string]any{
		"title": "Post",
		"draft": false,
		"tags":  []any{"go"},
		"extra": map[string]any{"b": 2, "a": 1},
	}

	first, err := Serialize(fields, Style{Newline: "\n"})
	require.NoError(t, err)
	second, err := Serialize(fields, Style{Newline: "\n"})
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Keys come out sorted.
	require.Regexp(t, `(?s)^draft:.*extra:.*tags:.*title:`, string(first))

	back, err := Parse(first)
	require.NoError(t, err)
	require.Equal(t, "Post", back["title"])
	require.Equal(t, []any{"go"}, back["tags"])
}

func TestSerializeEmpty(t *testing.T) {
	out, err := Serialize(nil, Style{})
	require.NoError(t, err)
	require.Empty(t, out)
}
