package wtutils

import "github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"

// The rel attribute alone does not tell link syntaxes apart since
// mw:ExtLink is shared by external, URL and magic links; stx disambiguates.

func usesWikiLinkSyntax(doc *dom.Document, n dom.NodeID, dp *dom.DataParsoid) bool {
	return doc.GetAttribute(n, "rel") == "mw:WikiLink" ||
		(dp.Stx != "" && dp.Stx != "url" && dp.Stx != "magiclink")
}

func usesExtLinkSyntax(doc *dom.Document, n dom.NodeID, dp *dom.DataParsoid) bool {
	return doc.GetAttribute(n, "rel") == "mw:ExtLink" &&
		dp.Stx != "url" && dp.Stx != "magiclink"
}

func usesURLLinkSyntax(doc *dom.Document, n dom.NodeID, dp *dom.DataParsoid) bool {
	return doc.GetAttribute(n, "rel") == "mw:ExtLink" && dp.Stx == "url"
}

func usesMagicLinkSyntax(doc *dom.Document, n dom.NodeID, dp *dom.DataParsoid) bool {
	return doc.GetAttribute(n, "rel") == "mw:ExtLink" && dp.Stx == "magiclink"
}

// IsATagFromWikiLinkSyntax reports whether n is an <a> produced by [[...]].
func IsATagFromWikiLinkSyntax(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElementNamed(n, "a") && usesWikiLinkSyntax(doc, n, doc.DataParsoid(n))
}

// IsATagFromExtLinkSyntax reports whether n is an <a> produced by [url text].
func IsATagFromExtLinkSyntax(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElementNamed(n, "a") && usesExtLinkSyntax(doc, n, doc.DataParsoid(n))
}

// IsATagFromURLLinkSyntax reports whether n is an <a> produced by a bare URL.
func IsATagFromURLLinkSyntax(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElementNamed(n, "a") && usesURLLinkSyntax(doc, n, doc.DataParsoid(n))
}

// IsATagFromMagicLinkSyntax reports whether n is an <a> produced by a magic
// link such as ISBN or RFC.
func IsATagFromMagicLinkSyntax(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElementNamed(n, "a") && usesMagicLinkSyntax(doc, n, doc.DataParsoid(n))
}
