package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveLink(t *testing.T) {
	base := "https://h/feed/rss.xml"

	for _, tc := range []struct {
		name, link, expect string
	}{
		{"absolute passthrough", "https://elsewhere/x", "https://elsewhere/x"},
		{"host relative", "/a", "https://h/a"},
		{"path relative", "a", "https://h/feed/a"},
		{"empty", "", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, ResolveLink(base, tc.link))
		})
	}
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <link>/</link>
    <description>Example description</description>
    <item>
      <guid>guid-1</guid>
      <title>With GUID</title>
      <link>/articles/1</link>
      <description>First article</description>
    </item>
    <item>
      <title>Without GUID</title>
      <link>https://h/articles/2</link>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestParse_NormalizesAndResolvesLinks(t *testing.T) {
	p := NewParser(nil, zap.NewNop())

	doc, err := p.Parse(sampleRSS, "https://h/feed.xml")
	require.NoError(t, err)

	assert.Equal(t, "Example Feed", doc.Title)
	assert.Equal(t, "Example description", doc.Description)
	assert.Equal(t, "https://h/", doc.SiteURL)
	require.Len(t, doc.Items, 2)

	first := doc.Items[0]
	assert.Equal(t, "guid-1", first.IdentifierHint)
	assert.Equal(t, "https://h/articles/1", first.Link)
	assert.Equal(t, "First article", first.Description)
	assert.Nil(t, first.PublishedAt)

	second := doc.Items[1]
	assert.Empty(t, second.IdentifierHint)
	assert.Equal(t, "https://h/articles/2", second.Link)
	require.NotNil(t, second.PublishedAt)
	assert.EqualValues(t, 1136214245000, *second.PublishedAt)
}

func TestParse_MalformedDocument(t *testing.T) {
	p := NewParser(nil, zap.NewNop())

	_, err := p.Parse("not a feed", "https://h/feed.xml")
	assert.Error(t, err)
}
