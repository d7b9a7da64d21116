package wtutils

import (
	"testing"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
)

func meta(doc *dom.Document, typeOf string) dom.NodeID {
	m := doc.CreateElement("meta")
	doc.SetAttribute(m, "typeof", typeOf)
	return m
}

func TestTemplateMarkers(t *testing.T) {
	doc := dom.NewDocument()
	start := meta(doc, "mw:Transclusion")
	end := meta(doc, "mw:Transclusion/End")
	param := meta(doc, "mw:Param")
	ext := meta(doc, "mw:Extension/ref")
	span := doc.CreateElement("span")
	doc.SetAttribute(span, "typeof", "mw:Transclusion")

	if !IsTplStartMarkerMeta(doc, start) || IsTplEndMarkerMeta(doc, start) {
		t.Errorf("Expected a start marker")
	}
	if !IsTplEndMarkerMeta(doc, end) || IsTplStartMarkerMeta(doc, end) {
		t.Errorf("Expected an end marker")
	}
	if !IsTplMarkerMeta(doc, param) {
		t.Errorf("Expected mw:Param to be a marker")
	}
	if IsTplMarkerMeta(doc, ext) {
		t.Errorf("Extension metas are not transclusion markers")
	}
	if IsTplMarkerMeta(doc, span) {
		t.Errorf("Only metas are markers")
	}
	if got := MatchTplType(doc, span); got != "mw:Transclusion" {
		t.Errorf("Expected typed span to match, got %q", got)
	}

	both := meta(doc, "mw:Foo mw:Transclusion/End")
	if got := MatchTplType(doc, both); got != "mw:Transclusion/End" {
		t.Errorf("Expected mw:Transclusion/End, got %q", got)
	}
	if MatchTplType(doc, meta(doc, "mw:TransclusionX")) != "" {
		t.Errorf("Expected no match on a longer type")
	}
}

func TestAnnotationMarkers(t *testing.T) {
	doc := dom.NewDocument()
	start := meta(doc, "mw:Annotation/translate")
	end := meta(doc, "mw:Annotation/tvar/End")

	if !IsMarkerAnnotation(doc, start) || !IsMarkerAnnotation(doc, end) {
		t.Errorf("Expected annotation markers")
	}
	if got := ExtractAnnotationType(doc, start); got != "translate" {
		t.Errorf("Expected translate, got %q", got)
	}
	if got := ExtractAnnotationType(doc, end); got != "tvar" {
		t.Errorf("Expected tvar, got %q", got)
	}
	if IsMarkerAnnotation(doc, meta(doc, "mw:Transclusion")) {
		t.Errorf("Transclusion markers are not annotations")
	}
}

func TestLinkSyntax(t *testing.T) {
	doc := dom.NewDocument()
	wl := doc.CreateElement("a")
	doc.SetAttribute(wl, "rel", "mw:WikiLink")

	url := doc.CreateElement("a")
	doc.SetAttribute(url, "rel", "mw:ExtLink")
	doc.DataParsoid(url).Stx = "url"

	ext := doc.CreateElement("a")
	doc.SetAttribute(ext, "rel", "mw:ExtLink")

	magic := doc.CreateElement("a")
	doc.SetAttribute(magic, "rel", "mw:ExtLink")
	doc.DataParsoid(magic).Stx = "magiclink"

	if !IsATagFromWikiLinkSyntax(doc, wl) || IsATagFromWikiLinkSyntax(doc, url) {
		t.Errorf("Unexpected wikilink classification")
	}
	if !IsATagFromURLLinkSyntax(doc, url) || IsATagFromExtLinkSyntax(doc, url) {
		t.Errorf("Unexpected url link classification")
	}
	if !IsATagFromExtLinkSyntax(doc, ext) {
		t.Errorf("Expected ext link")
	}
	if !IsATagFromMagicLinkSyntax(doc, magic) || IsATagFromWikiLinkSyntax(doc, magic) {
		t.Errorf("Unexpected magic link classification")
	}
}

func TestStructure(t *testing.T) {
	doc := dom.NewDocument()
	body := doc.CreateElement("body")
	table := doc.CreateElement("table")
	tbody := doc.CreateElement("tbody")
	ws := doc.CreateTextNode("\n")
	doc.AppendChild(body, table)
	doc.AppendChild(table, tbody)
	doc.AppendChild(tbody, ws)

	if !IsFosterablePosition(doc, ws) || !IsFosterablePosition(doc, tbody) {
		t.Errorf("Expected fosterable positions inside table containers")
	}
	if IsFosterablePosition(doc, table) {
		t.Errorf("The table itself is not in a fosterable position")
	}
	if !AtTheTop(doc, body) || AtTheTop(doc, table) {
		t.Errorf("Unexpected AtTheTop")
	}
	if !HasBlockTag(doc, body) {
		t.Errorf("Expected a block descendant")
	}

	ul := doc.CreateElement("ul")
	li := doc.CreateElement("li")
	b := doc.CreateElement("b")
	doc.AppendChild(ul, li)
	doc.AppendChild(li, b)
	if !IsNestedInListItem(doc, b) || IsNestedInListItem(doc, li) {
		t.Errorf("Unexpected list nesting")
	}
	if !IsQuoteElt(doc, b) || HasBlockTag(doc, b) {
		t.Errorf("Unexpected inline classification")
	}
}

func TestStripping(t *testing.T) {
	if got := StripParsoidIDPrefix("#mwt12"); got != "12" {
		t.Errorf("Expected 12, got %q", got)
	}
	if got := StripParsoidIDPrefix("mwa3"); got != "mwa3" {
		t.Errorf("Expected mwa3 untouched, got %q", got)
	}
	if got := StripMWTypes("mw:Transclusion foo mw:Param/End"); got != "foo" {
		t.Errorf("Expected foo, got %q", got)
	}
}
