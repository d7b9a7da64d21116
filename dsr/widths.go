package dsr

import (
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wikitext"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wtutils"
)

// computeTagWidths fills in the opening and closing markup widths of n that
// its TSR did not already supply.
func (c *computer) computeTagWidths(st, et dom.Offset, n dom.NodeID, dp *dom.DataParsoid) (dom.Offset, dom.Offset) {
	if dp.ExtTagOffsets != nil {
		return dp.ExtTagOffsets.OpenWidth, dp.ExtTagOffsets.CloseWidth
	}

	switch {
	case wtutils.HasLiteralHTMLMarker(dp):
		if dp.SelfClose {
			et = dom.Known(0)
		}
	case c.doc.HasTypeOf(n, "mw:LanguageVariant"):
		// -{ and }-
		st, et = dom.Known(2), dom.Known(2)
	default:
		name := c.doc.NodeName(n)
		// Rows not present in the source have zero width.
		if name == "tr" && dp.StartTagSrc == "" {
			return dom.Known(0), dom.Known(0)
		}
		w, ok := wikitext.TagWidths(name)
		if !st.Valid {
			switch name {
			case "a":
				w, ok = c.aTagWidth(n, dp)
				st = w.Open
			case "li", "dd":
				st = dom.Known(c.listEltWidth(n))
			default:
				if ok {
					st = w.Open
				}
			}
		}
		if !et.Valid && ok {
			et = w.Close
		}
	}
	return st, et
}

// aTagWidth returns the markup widths around the link text of an anchor:
//
//	[[Foo|bar]]         "[[Foo|" and "]]"
//	[[Foo]]             "[[" and "]]"
//	[http://wp.org foo] "[http://wp.org " and "]"
//	bare URLs and magic links have no markup of their own
//
// Links with templated targets report no widths since their href is the
// expanded target, not the source.
func (c *computer) aTagWidth(n dom.NodeID, dp *dom.DataParsoid) (wikitext.TagWidth, bool) {
	doc := c.doc
	switch {
	case wtutils.IsATagFromWikiLinkSyntax(doc, n) && !wtutils.HasExpandedAttrsType(doc, n):
		if dp.Stx == "piped" {
			href := dp.SA["href"]
			if href == "" {
				return wikitext.TagWidth{}, false
			}
			return tagWidth(len(href)+3, 2), true
		}
		return tagWidth(2, 2), true
	case dp.TSR != nil && wtutils.IsATagFromExtLinkSyntax(doc, n):
		if dp.Tmp == nil || dp.Tmp.ExtLinkContentOffsets == nil {
			return wikitext.TagWidth{}, false
		}
		return tagWidth(dp.Tmp.ExtLinkContentOffsets.Start-dp.TSR.Start, 1), true
	case wtutils.IsATagFromURLLinkSyntax(doc, n) || wtutils.IsATagFromMagicLinkSyntax(doc, n):
		return tagWidth(0, 0), true
	}
	return wikitext.TagWidth{}, false
}

// listEltWidth returns the opening width of a list item: its nesting depth,
// i.e. the number of bullets in front of it.
func (c *computer) listEltWidth(li dom.NodeID) int {
	doc := c.doc
	// The first item on a chain of nested lists gets no width; its bullets
	// belong to the innermost item.
	if first := doc.FirstChild(li); doc.PreviousSibling(li) == dom.None && first != dom.None &&
		wtutils.IsList(doc, first) {
		return 0
	}

	depth := 0
	for n := li; n != dom.None && !wtutils.AtTheTop(doc, n); n = doc.Parent(n) {
		if wtutils.IsListOrListItem(doc, n) {
			if wtutils.IsListItem(doc, n) {
				depth++
			}
			continue
		}
		// Auto-inserted literal HTML wrappers are transparent.
		if !wtutils.IsLiteralHTMLNode(doc, n) {
			break
		}
		if dp := doc.DataParsoid(n); !dp.AutoInsertedStart || !dp.AutoInsertedEnd {
			break
		}
	}
	return depth
}

func tagWidth(open, close int) wikitext.TagWidth {
	return wikitext.TagWidth{Open: dom.Known(open), Close: dom.Known(close)}
}
