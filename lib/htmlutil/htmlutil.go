// Package htmlutil holds the scraping primitives for pulling anti-forgery
// tokens out of the portal's server-rendered pages. The extraction is
// intentionally pinned to the exact markup the portal serves today; when
// the portal changes shape these helpers return nothing and the calling
// operation fails instead of guessing.
package htmlutil

import (
	"bytes"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under node.
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

// InputValue parses page as HTML (tolerant of broken markup) and returns
// the value attribute of the first <input> whose name attribute equals
// name, or "" if there is none.
func InputValue(page []byte, name string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(page))
	if err != nil {
		return ""
	}
	return doc.Find("input[name=\"" + name + "\"]").AttrOr("value", "")
}

// some pages only carry the token inside a javascript string literal,
// as `let token = '<input ... value="..." ...>'`. the snippet is not
// standalone HTML so this has to stay a regex, not a parse.
var scriptTokenRegex = regexp.MustCompile(`let\s+token\s*=\s*'<input[^>]*value="([^"]+)"[^>]*>'`)

// ScriptInputValue extracts the token embedded in the page's inline
// getAntiForgeryToken script, or "" if the pattern does not match.
func ScriptInputValue(page []byte) string {
	groups := scriptTokenRegex.FindSubmatch(page)
	if len(groups) < 2 {
		return ""
	}
	return string(groups[1])
}
