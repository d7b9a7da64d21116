package rangebuilder

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wikitext"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wtutils"
)

var wsWithNewlineRe = regexp2.MustCompile(`^[ \t\r\n]*\n[ \t\r\n]*$`, regexp2.None)

// Elements that end a line in wikitext, or whose implicit close tags can
// leak newlines to one that does (th, td).
var nlMigrationSources = map[string]bool{
	"pre": true, "th": true, "td": true, "tr": true, "li": true, "dd": true,
	"ol": true, "ul": true, "dl": true, "caption": true, "p": true,
}

// MigrateTrailingNLs moves newlines (and the comments between them) that
// trail the content of elements ending a wikitext line out of those
// elements, so that the newline belongs to the parent as it does in the
// source. The subtree of elt is processed before elt itself.
func MigrateTrailingNLs(doc *dom.Document, elt dom.NodeID) {
	if !doc.IsElement(elt) {
		return
	}

	// Backwards, so that a table is handled before the content fostered
	// out of it and nodes migrated out of a child are not revisited.
	for c := doc.LastChild(elt); c != dom.None; c = doc.PreviousSibling(c) {
		MigrateTrailingNLs(doc, c)
	}

	if !canMigrateNLOutOfNode(doc, elt) {
		return
	}

	var first, barrier dom.NodeID
	partial := false
	n := doc.LastChild(elt)

	// Newlines can migrate across trailing nodes that have no source.
	for doc.IsElement(n) && hasZeroWidthWT(doc, n) {
		barrier = n
		n = doc.PreviousSibling(n)
	}

	foundNL := false
	tsrCorrection := 0
collect:
	for doc.IsText(n) || doc.IsComment(n) {
		data := doc.Data(n)
		switch {
		case doc.IsComment(n):
			first = n
			tsrCorrection += wikitext.DecodedCommentLength(data)
		case matchString(wsWithNewlineRe, data):
			foundNL = true
			first = n
			partial = false
			tsrCorrection += len(data)
		case strings.HasSuffix(data, "\n"):
			foundNL = true
			first = n
			partial = true
			tsrCorrection += len(data) - len(strings.TrimRight(data, "\n"))
			break collect
		default:
			break collect
		}
		n = doc.PreviousSibling(n)
	}

	if first == dom.None || !foundNL {
		return
	}

	parent := doc.Parent(elt)
	insertAt := doc.NextSibling(elt)
	// An end-tag marker carries the TSR of elt's end tag; keep the two
	// adjacent.
	if doc.IsElementNamed(insertAt, "meta") && doc.HasTypeOf(insertAt, "mw:EndTag") &&
		doc.GetAttribute(insertAt, "data-etag") == doc.NodeName(elt) {
		insertAt = doc.NextSibling(insertAt)
	}

	for n := first; n != barrier && n != dom.None; {
		next := doc.NextSibling(n)
		if partial {
			data := doc.Data(n)
			kept := strings.TrimRight(data, "\n")
			doc.SetData(n, kept)
			n = doc.CreateTextNode(data[len(kept):])
			partial = false
		}
		doc.InsertBefore(parent, n, insertAt)
		n = next
	}

	// Zero-width nodes after the barrier keep their place in the source.
	for n := barrier; n != dom.None; n = doc.NextSibling(n) {
		if dp := doc.DataParsoid(n); dp != nil && dp.TSR != nil {
			dp.TSR = &dom.SourceRange{Start: dp.TSR.Start - tsrCorrection, End: dp.TSR.End - tsrCorrection}
		}
	}
}

func matchString(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

func nodeEndsLineInWT(doc *dom.Document, n dom.NodeID, dp *dom.DataParsoid) bool {
	return nlMigrationSources[doc.NodeName(n)] && !wtutils.HasLiteralHTMLMarker(dp)
}

func tableParent(doc *dom.Document, n dom.NodeID) dom.NodeID {
	switch doc.NodeName(n) {
	case "td", "th":
		n = doc.Parent(n)
	}
	if doc.NodeName(n) == "tr" {
		n = doc.Parent(n)
	}
	switch doc.NodeName(n) {
	case "tbody", "thead", "tfoot", "caption":
		n = doc.Parent(n)
	}
	if doc.IsElementNamed(n, "table") {
		return n
	}
	return dom.None
}

func canMigrateNLOutOfNode(doc *dom.Document, n dom.NodeID) bool {
	if !doc.IsElement(n) {
		return false
	}
	if name := doc.NodeName(n); name == "table" || name == "body" {
		return false
	}
	// Tables that had content fostered out of them keep their newlines.
	if tbl := tableParent(doc, n); tbl != dom.None {
		if prev := doc.PreviousSibling(tbl); doc.IsElement(prev) && doc.DataParsoid(prev).Fostered {
			return false
		}
	}
	dp := doc.DataParsoid(n)
	if dp.Fostered {
		return false
	}
	return nodeEndsLineInWT(doc, n, dp) || dp.AutoInsertedEnd ||
		(doc.NextSibling(n) == dom.None && canMigrateNLOutOfNode(doc, doc.Parent(n)))
}

func hasZeroWidthWT(doc *dom.Document, n dom.NodeID) bool {
	tsr := doc.DataParsoid(n).TSR
	if tsr == nil || tsr.Start != tsr.End {
		return false
	}
	c := doc.FirstChild(n)
	for doc.IsElement(c) && hasZeroWidthWT(doc, c) {
		c = doc.NextSibling(c)
	}
	return c == dom.None
}
