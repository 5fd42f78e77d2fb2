package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

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

var tagRegex = regexp.MustCompile(`<[^>]*>`)
var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CellText strips markup from an HTML fragment by collapsing every tag
// to a single space, then normalizes the surrounding whitespace.
func CellText(fragment string) string {
	text := tagRegex.ReplaceAllString(fragment, " ")
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.Trim(text, " \t\n")
}
