package htmlutil

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node` in document order.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// OwnText concatenates only the text nodes that are direct children of `node`.
func OwnText(node *html.Node) string {
	var buffer bytes.Buffer
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			buffer.WriteString(child.Data)
		}
	}
	return buffer.String()
}

// SoleString follows a chain of single children down from `node` and returns the
// text at the bottom of it. `<td><b>Title</b></td>` yields "Title",
// `<td>Title <i>x</i></td>` yields nothing since the td has two children.
func SoleString(node *html.Node) (string, bool) {
	for node != nil {
		child := node.FirstChild
		if child == nil || child.NextSibling != nil {
			return "", false
		}
		if child.Type == html.TextNode {
			return child.Data, true
		}
		if child.Type != html.ElementNode {
			return "", false
		}
		node = child
	}
	return "", false
}

// Clean returns the text of every node in the selection with surrounding
// whitespace removed.
func Clean(sel *goquery.Selection) string {
	var text strings.Builder
	for _, node := range sel.Nodes {
		text.WriteString(GetText(node))
	}
	return strings.TrimSpace(text.String())
}

// ResolveHref resolves a (possibly relative) href against the page it was found on.
func ResolveHref(pageUrl, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if pageUrl == "" {
		return ref.String(), nil
	}
	base, err := url.Parse(pageUrl)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
