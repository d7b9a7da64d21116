package wtutils

import (
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wikitext"
)

// HasLiteralHTMLMarker reports whether the element came from literal HTML
// in the wikitext rather than wikitext syntax.
func HasLiteralHTMLMarker(dp *dom.DataParsoid) bool {
	return dp != nil && dp.Stx == "html"
}

// IsLiteralHTMLNode reports whether n is an element written as literal HTML.
func IsLiteralHTMLNode(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && HasLiteralHTMLMarker(doc.DataParsoid(n))
}

// AtTheTop reports whether n is the body or a document fragment.
func AtTheTop(doc *dom.Document, n dom.NodeID) bool {
	t := doc.NodeType(n)
	return t == dom.DocumentFragmentNode || (t == dom.ElementNode && doc.NodeName(n) == "body")
}

// IsFosterablePosition reports whether n sits directly inside a table
// container where non-table content would be foster-parented.
func IsFosterablePosition(doc *dom.Document, n dom.NodeID) bool {
	if n == dom.None {
		return false
	}
	p := doc.Parent(n)
	return doc.IsElement(p) && wikitext.IsFosterableParent(doc.NodeName(p))
}

// IsQuoteElt reports whether n is an <i> or <b>.
func IsQuoteElt(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && wikitext.IsQuoteTag(doc.NodeName(n))
}

// IsList reports whether n is a ul, ol or dl.
func IsList(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && wikitext.IsListTag(doc.NodeName(n))
}

// IsListItem reports whether n is a li, dd or dt.
func IsListItem(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && wikitext.IsListItemTag(doc.NodeName(n))
}

// IsListOrListItem reports whether n is a list or a list item.
func IsListOrListItem(doc *dom.Document, n dom.NodeID) bool {
	return IsList(doc, n) || IsListItem(doc, n)
}

// IsNestedInListItem reports whether some ancestor of n is a list item.
func IsNestedInListItem(doc *dom.Document, n dom.NodeID) bool {
	for p := doc.Parent(n); p != dom.None; p = doc.Parent(p) {
		if IsListItem(doc, p) {
			return true
		}
	}
	return false
}

// IsBlockNode reports whether n is a block-level element.
func IsBlockNode(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && wikitext.IsBlockTag(doc.NodeName(n))
}

// HasBlockTag reports whether n or any of its descendants is a block-level
// element.
func HasBlockTag(doc *dom.Document, n dom.NodeID) bool {
	if IsBlockNode(doc, n) {
		return true
	}
	for c := doc.FirstChild(n); c != dom.None; c = doc.NextSibling(c) {
		if HasBlockTag(doc, c) {
			return true
		}
	}
	return false
}

// IsFostered reports whether n is an element moved out of a table by the
// tree builder.
func IsFostered(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && doc.DataParsoid(n).Fostered
}
