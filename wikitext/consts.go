// Package wikitext holds static knowledge about how HTML tags map back to
// wikitext markup.
package wikitext

import "github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"

// TagWidth is the pair of wikitext markup widths for an HTML tag. Unknown
// widths are computed from context.
type TagWidth struct {
	Open  dom.Offset
	Close dom.Offset
}

func widths(open, close int) TagWidth {
	return TagWidth{Open: dom.Known(open), Close: dom.Known(close)}
}

// tagWidths lists the statically known wikitext widths of tags.
var tagWidths = map[string]TagWidth{
	"body": widths(0, 0),
	"html": widths(0, 0),
	"head": widths(0, 0),
	"p":    widths(0, 0),
	"meta": widths(0, 0),
	// Indent-pre whitespace is accounted for by a separate marker.
	"pre":        widths(0, 0),
	"ol":         widths(0, 0),
	"ul":         widths(0, 0),
	"dl":         widths(0, 0),
	"li":         widths(1, 0),
	"dt":         widths(1, 0),
	"dd":         widths(1, 0),
	"h1":         widths(1, 1),
	"h2":         widths(2, 2),
	"h3":         widths(3, 3),
	"h4":         widths(4, 4),
	"h5":         widths(5, 5),
	"h6":         widths(6, 6),
	"hr":         widths(4, 0),
	"table":      widths(2, 2),
	"tbody":      widths(0, 0),
	"thead":      widths(0, 0),
	"tfoot":      widths(0, 0),
	"tr":         {Close: dom.Known(0)},
	"td":         {Close: dom.Known(0)},
	"th":         {Close: dom.Known(0)},
	"b":          widths(3, 3),
	"i":          widths(2, 2),
	"br":         widths(0, 0),
	"figure":     widths(2, 2),
	"figcaption": widths(0, 0),
}

// TagWidths returns the known wikitext widths for the tag name.
func TagWidths(name string) (TagWidth, bool) {
	w, ok := tagWidths[name]
	return w, ok
}

// limitedTSRTags are tags whose tokenizer source range covers only the
// opening tag. Other wikitext constructs (links, void tags produced by the
// tokenizer, marker metas) carry a range spanning their whole subtree.
var limitedTSRTags = set(
	"b", "i", "h1", "h2", "h3", "h4", "h5", "h6",
	"ul", "ol", "dl", "li", "dt", "dd",
	"table", "caption", "tr", "td", "th",
	"hr", "br", "pre",
)

// HasLimitedTSR reports whether the tag's TSR covers only its opening tag.
func HasLimitedTSR(name string) bool {
	return limitedTSRTags[name]
}

var quoteTags = set("i", "b")

// IsQuoteTag reports whether name is produced by '' or ''' quotes.
func IsQuoteTag(name string) bool {
	return quoteTags[name]
}

var fosterablePosition = set("table", "thead", "tbody", "tfoot", "tr")

// IsFosterableParent reports whether non-table content placed directly
// inside an element of this name would be foster-parented.
func IsFosterableParent(name string) bool {
	return fosterablePosition[name]
}

var (
	listTags     = set("ul", "ol", "dl")
	listItemTags = set("li", "dd", "dt")
)

// IsListTag reports whether name is a list container.
func IsListTag(name string) bool {
	return listTags[name]
}

// IsListItemTag reports whether name is a list item.
func IsListItemTag(name string) bool {
	return listItemTags[name]
}

var blockTags = set(
	"div", "p",
	"table", "tbody", "thead", "tfoot", "caption", "th", "tr", "td",
	"ul", "ol", "li", "dl", "dt", "dd",
	"h1", "h2", "h3", "h4", "h5", "h6", "hgroup",
	"article", "aside", "nav", "section", "footer", "header",
	"figure", "figcaption", "fieldset", "details", "blockquote",
	"hr", "button", "canvas", "center", "col", "colgroup", "embed",
	"map", "object", "pre", "progress",
)

// IsBlockTag reports whether name is an HTML4 block-level tag. video is
// deliberately absent.
func IsBlockTag(name string) bool {
	return blockTags[name]
}

// IsTableBodyOrRow reports whether name is one of the containers leading
// whitespace may be migrated into without changing rendering.
func IsTableBodyOrRow(name string) bool {
	return name == "tbody" || name == "tr"
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
