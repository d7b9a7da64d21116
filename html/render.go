package html

import (
	"encoding/json"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
)

// Render writes the whole document as HTML. Node data is re-encoded into
// data-parsoid and data-mw attributes; temporary pipeline state is dropped.
func Render(w io.Writer, doc *dom.Document) error {
	_, err := io.WriteString(w, InnerHTML(doc, doc.Root()))
	return err
}

// OuterHTML returns the HTML of n including n itself.
func OuterHTML(doc *dom.Document, n dom.NodeID) string {
	var sb strings.Builder
	serializeNode(doc, n, &sb)
	return sb.String()
}

// InnerHTML returns the HTML of the children of n.
func InnerHTML(doc *dom.Document, n dom.NodeID) string {
	var sb strings.Builder
	for c := doc.FirstChild(n); c != dom.None; c = doc.NextSibling(c) {
		serializeNode(doc, c, &sb)
	}
	return sb.String()
}

func serializeNode(doc *dom.Document, n dom.NodeID, sb *strings.Builder) {
	switch doc.NodeType(n) {
	case dom.TextNode:
		if isRawTextElement(doc.NodeName(doc.Parent(n))) {
			sb.WriteString(doc.Data(n))
		} else {
			sb.WriteString(html.EscapeString(doc.Data(n)))
		}
	case dom.CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(doc.Data(n))
		sb.WriteString("-->")
	case dom.DocumentTypeNode:
		sb.WriteString("<!DOCTYPE ")
		sb.WriteString(doc.NodeName(n))
		sb.WriteString(">")
	case dom.ElementNode:
		tagName := doc.NodeName(n)
		sb.WriteString("<")
		sb.WriteString(tagName)
		for _, attr := range doc.Attributes(n) {
			writeAttr(sb, attr.Key, attr.Value)
		}
		writeNodeData(doc, n, sb)

		if isVoidElement(tagName) {
			sb.WriteString(">")
			return
		}
		sb.WriteString(">")
		for child := doc.FirstChild(n); child != dom.None; child = doc.NextSibling(child) {
			serializeNode(doc, child, sb)
		}
		sb.WriteString("</")
		sb.WriteString(tagName)
		sb.WriteString(">")
	case dom.DocumentNode, dom.DocumentFragmentNode:
		for child := doc.FirstChild(n); child != dom.None; child = doc.NextSibling(child) {
			serializeNode(doc, child, sb)
		}
	}
}

func writeNodeData(doc *dom.Document, n dom.NodeID, sb *strings.Builder) {
	if doc.HasDataParsoid(n) {
		dp := *doc.DataParsoid(n)
		dp.Tmp = nil
		if b, err := json.Marshal(dp); err == nil && string(b) != "{}" {
			writeAttr(sb, dataParsoidAttr, string(b))
		}
	}
	if doc.HasDataMw(n) {
		if b, err := json.Marshal(doc.DataMw(n)); err == nil {
			writeAttr(sb, dataMwAttr, string(b))
		}
	}
}

func writeAttr(sb *strings.Builder, key, value string) {
	sb.WriteString(" ")
	sb.WriteString(key)
	sb.WriteString("=\"")
	sb.WriteString(html.EscapeString(value))
	sb.WriteString("\"")
}

// isVoidElement returns true if the element is a void element.
func isVoidElement(tagName string) bool {
	switch tagName {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

func isRawTextElement(tagName string) bool {
	switch tagName {
	case "script", "style", "xmp", "iframe", "noembed", "noframes", "plaintext":
		return true
	}
	return false
}
