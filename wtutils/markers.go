// Package wtutils holds predicates over DOM nodes that need wikitext
// knowledge: marker metas, link syntax, placeholders and list structure.
package wtutils

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
)

var (
	tplMetaTypeRe        = regexp2.MustCompile(`(?:^|\s)(mw:(?:Transclusion|Param)(?:/End)?)(?=$|\s)`, regexp2.None)
	annotationMetaTypeRe = regexp2.MustCompile(`^mw:Annotation/(.*?)(?:/End)?$`, regexp2.None)
	domFragmentTypeRe    = regexp2.MustCompile(`(?:^|\s)mw:DOMFragment(/sealed/\w+)?(?=$|\s)`, regexp2.None)
	expandedAttrsTypeRe  = regexp2.MustCompile(`^mw:ExpandedAttrs(/[^\s]+)*$`, regexp2.None)
	placeholderTypeRe    = regexp2.MustCompile(`^mw:Placeholder(/\w*)?$`, regexp2.None)
	placeholderOrLVRe    = regexp2.MustCompile(`^mw:(Placeholder|LanguageVariant)$`, regexp2.None)
	mwTypeRe             = regexp2.MustCompile(`(?:^|\s)mw:[^/\s]*(/\S+|(?=$|\s))`, regexp2.None)
	parsoidIDPrefixRe    = regexp2.MustCompile(`^#?mwt`, regexp2.None)
)

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// MatchTypeOf returns the first typeof value of n matching re, or "".
func MatchTypeOf(doc *dom.Document, n dom.NodeID, re *regexp2.Regexp) string {
	for _, t := range doc.TypeOf(n) {
		if matches(re, t) {
			return t
		}
	}
	return ""
}

// MatchTplType returns the transclusion or parameter type of n (with an
// optional /End suffix), or "" when n is not part of one.
func MatchTplType(doc *dom.Document, n dom.NodeID) string {
	return MatchTypeOf(doc, n, tplMetaTypeRe)
}

// IsTplMarkerMeta reports whether n is a transclusion start or end marker.
func IsTplMarkerMeta(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElementNamed(n, "meta") && MatchTplType(doc, n) != ""
}

// IsTplStartMarkerMeta reports whether n is a transclusion start marker.
func IsTplStartMarkerMeta(doc *dom.Document, n dom.NodeID) bool {
	if !doc.IsElementNamed(n, "meta") {
		return false
	}
	t := MatchTplType(doc, n)
	return t != "" && !strings.HasSuffix(t, "/End")
}

// IsTplEndMarkerMeta reports whether n is a transclusion end marker.
func IsTplEndMarkerMeta(doc *dom.Document, n dom.NodeID) bool {
	if !doc.IsElementNamed(n, "meta") {
		return false
	}
	return strings.HasSuffix(MatchTplType(doc, n), "/End")
}

// MatchAnnotationMeta returns the annotation type value of a meta, e.g.
// "mw:Annotation/translate/End", or "".
func MatchAnnotationMeta(doc *dom.Document, n dom.NodeID) string {
	if !doc.IsElementNamed(n, "meta") {
		return ""
	}
	return MatchTypeOf(doc, n, annotationMetaTypeRe)
}

// IsMarkerAnnotation reports whether n is an annotation start or end meta.
func IsMarkerAnnotation(doc *dom.Document, n dom.NodeID) bool {
	return MatchAnnotationMeta(doc, n) != ""
}

// ExtractAnnotationType returns the annotation name of a marker, e.g.
// "translate" for mw:Annotation/translate/End.
func ExtractAnnotationType(doc *dom.Document, n dom.NodeID) string {
	t := MatchAnnotationMeta(doc, n)
	if t == "" {
		return ""
	}
	m, err := annotationMetaTypeRe.FindStringMatch(t)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(1).String()
}

// IsDOMFragmentWrapper reports whether n wraps an unpacked DOM fragment.
func IsDOMFragmentWrapper(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && matches(domFragmentTypeRe, doc.GetAttribute(n, "typeof"))
}

// HasExpandedAttrsType reports whether n had templated attributes.
func HasExpandedAttrsType(doc *dom.Document, n dom.NodeID) bool {
	return MatchTypeOf(doc, n, expandedAttrsTypeRe) != ""
}

// IsPlaceholder reports whether n is an mw:Placeholder of any subtype.
func IsPlaceholder(doc *dom.Document, n dom.NodeID) bool {
	return MatchTypeOf(doc, n, placeholderTypeRe) != ""
}

// IsPlaceholderOrLanguageVariant reports whether n has exactly the
// mw:Placeholder or mw:LanguageVariant type.
func IsPlaceholderOrLanguageVariant(doc *dom.Document, n dom.NodeID) bool {
	return MatchTypeOf(doc, n, placeholderOrLVRe) != ""
}

// IsIndentPreWS reports whether n is the marker left for the leading space
// of an indent-pre line.
func IsIndentPreWS(doc *dom.Document, n dom.NodeID) bool {
	return doc.IsElement(n) && doc.HasTypeOf(n, "mw:IndentPreWS")
}

// StripMWTypes removes every mw:* value from a typeof string.
func StripMWTypes(typeOf string) string {
	out, err := mwTypeRe.Replace(typeOf, "", -1, -1)
	if err != nil {
		return typeOf
	}
	return strings.TrimSpace(out)
}

// StripParsoidIDPrefix drops the "#mwt" / "mwt" prefix of generated ids.
func StripParsoidIDPrefix(about string) string {
	out, err := parsoidIDPrefixRe.Replace(about, "", -1, 1)
	if err != nil {
		return about
	}
	return out
}
