package lib

import (
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ExtractIconURL digs through a page's head for something usable as a
// source icon, preferring social-card images over favicons.
func ExtractIconURL(n *html.Node) string {
	if url := extractOpengraphImage(n); url != "" {
		return url
	}
	if url := extractTwitterImage(n); url != "" {
		return url
	}
	if url := extractFavicon(n); url != "" {
		return url
	}
	return ""
}

func extractOpengraphImage(n *html.Node) string {
	return attrOf(htmlquery.FindOne(n, "//meta[@property = 'og:image']"), "content")
}

func extractTwitterImage(n *html.Node) string {
	return attrOf(htmlquery.FindOne(n, "//meta[@name = 'twitter:image']"), "content")
}

func extractFavicon(n *html.Node) string {
	if elem := htmlquery.FindOne(n, "//link[@rel = 'icon']"); elem != nil {
		return attrOf(elem, "href")
	}
	return attrOf(htmlquery.FindOne(n, "//link[@rel = 'shortcut icon']"), "href")
}

func attrOf(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
