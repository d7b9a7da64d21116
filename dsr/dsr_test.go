package dsr

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/env"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/html"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/logging"
)

func parseBody(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc, err := html.Parse("<body>" + body + "</body>")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func compute(t *testing.T, src, body string) (*dom.Document, *bytes.Buffer) {
	t.Helper()
	doc := parseBody(t, body)
	var logs bytes.Buffer
	e := env.New(src, env.WithLogger(logging.New(&logs, logging.LevelDebug, logging.FormatText)))
	Compute(e, doc, doc.Body(), Options{})
	return doc, &logs
}

func dsrOf(t *testing.T, doc *dom.Document, n dom.NodeID) *dom.DomSourceRange {
	t.Helper()
	d := doc.DataParsoid(n).DSR
	if d == nil {
		t.Fatalf("Expected a DSR on <%s>", doc.NodeName(n))
	}
	return d
}

func unknownWidths(start, end int) *dom.DomSourceRange {
	return &dom.DomSourceRange{Start: dom.Known(start), End: dom.Known(end)}
}

func TestCompute_WikiLink(t *testing.T) {
	doc, logs := compute(t, "[[Foo_x]]",
		`<a rel="mw:WikiLink" href="./Foo_x" data-parsoid='{"stx":"simple","tsr":[0,9]}'>Foo x</a>`)

	a := doc.FirstChild(doc.Body())
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 9, 2, 2), dsrOf(t, doc, a)); diff != "" {
		t.Errorf("Unexpected link DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 9, 0, 0), dsrOf(t, doc, doc.Body())); diff != "" {
		t.Errorf("Unexpected body DSR (-want +got):\n%s", diff)
	}
	if strings.Contains(logs.String(), "dsr/inconsistent") {
		t.Errorf("Expected no inconsistency, got %s", logs.String())
	}
}

func TestCompute_PipedWikiLink(t *testing.T) {
	src := "[[Foo|bar]]"
	doc, _ := compute(t, src,
		`<a rel="mw:WikiLink" href="./Foo" data-parsoid='{"stx":"piped","sa":{"href":"Foo"},"tsr":[0,11]}'>bar</a>`)

	a := doc.FirstChild(doc.Body())
	got := dsrOf(t, doc, a)
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 11, 6, 2), got); diff != "" {
		t.Errorf("Unexpected link DSR (-want +got):\n%s", diff)
	}
	if inner := got.InnerSubstr(src); inner != "bar" {
		t.Errorf("Expected inner source bar, got %q", inner)
	}
}

func TestCompute_QuotesAndText(t *testing.T) {
	src := "''a'' b"
	doc, logs := compute(t, src, `<p><i data-parsoid='{"tsr":[0,2]}'>a</i> b</p>`)

	p := doc.FirstChild(doc.Body())
	i := doc.FirstChild(p)
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 7, 0, 0), dsrOf(t, doc, p)); diff != "" {
		t.Errorf("Unexpected p DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 5, 2, 2), dsrOf(t, doc, i)); diff != "" {
		t.Errorf("Unexpected i DSR (-want +got):\n%s", diff)
	}
	if got := dsrOf(t, doc, i).Substr(src); got != "''a''" {
		t.Errorf("Expected ''a'', got %q", got)
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no diagnostics, got %s", logs.String())
	}
}

func TestCompute_Comment(t *testing.T) {
	src := "<!--a-->b"
	doc, _ := compute(t, src, `<p><!--a-->b</p>`)

	p := doc.FirstChild(doc.Body())
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 9, 0, 0), dsrOf(t, doc, p)); diff != "" {
		t.Errorf("Unexpected p DSR (-want +got):\n%s", diff)
	}
}

func TestCompute_Fostered(t *testing.T) {
	doc, _ := compute(t, "xabc", `<p data-parsoid='{"fostered":true}'>x</p>abc`)

	p := doc.FirstChild(doc.Body())
	got := dsrOf(t, doc, p)
	if diff := cmp.Diff(unknownWidths(1, 1), got); diff != "" {
		t.Errorf("Unexpected fostered DSR (-want +got):\n%s", diff)
	}
	if got.Length() != 0 {
		t.Errorf("Expected zero-width fostered range, got %s", got)
	}
}

func TestCompute_ParentContainsChildren(t *testing.T) {
	src := "== h ==\n'''b'''"
	doc, logs := compute(t, src,
		`<h2 data-parsoid='{"tsr":[0,2]}'> h </h2>`+"\n"+`<p><b data-parsoid='{"tsr":[8,11]}'>b</b></p>`)

	h2 := doc.FirstChild(doc.Body())
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 7, 2, 2), dsrOf(t, doc, h2)); diff != "" {
		t.Errorf("Unexpected h2 DSR (-want +got):\n%s", diff)
	}

	doc.Walk(doc.Body(), func(n dom.NodeID) bool {
		if !doc.IsElement(n) || n == doc.Body() {
			return true
		}
		d := dsrOf(t, doc, n)
		pd := dsrOf(t, doc, doc.Parent(n))
		if !d.IsValid() || !pd.IsValid() {
			t.Errorf("Expected valid DSRs on <%s> and its parent", doc.NodeName(n))
			return true
		}
		if d.Start.N < pd.Start.N || d.End.N > pd.End.N {
			t.Errorf("Expected <%s> %s inside parent %s", doc.NodeName(n), d, pd)
		}
		return true
	})
	if logs.Len() != 0 {
		t.Errorf("Expected no diagnostics, got %s", logs.String())
	}
}

func TestCompute_MarkerMetaResetsCursor(t *testing.T) {
	doc, _ := compute(t, "{{x}}y",
		`<meta typeof="mw:Transclusion" about="#mwt1" data-parsoid='{"tsr":[0,5]}'>`+
			`<span about="#mwt1">X</span><meta typeof="mw:Transclusion/End" about="#mwt1">y`)

	start := doc.FirstChild(doc.Body())
	if diff := cmp.Diff(unknownWidths(0, 5), dsrOf(t, doc, start)); diff != "" {
		t.Errorf("Unexpected marker DSR (-want +got):\n%s", diff)
	}

	// Template content has no top-level offsets of its own.
	span := doc.NextSibling(start)
	if got := doc.DataParsoid(span).DSR; got != nil {
		t.Errorf("Expected no DSR on template content, got %s", got)
	}

	// The end marker only knows where the trailing text begins.
	end := doc.NextSibling(span)
	if diff := cmp.Diff(&dom.DomSourceRange{End: dom.Known(5)}, dsrOf(t, doc, end)); diff != "" {
		t.Errorf("Unexpected end marker DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 6, 0, 0), dsrOf(t, doc, doc.Body())); diff != "" {
		t.Errorf("Unexpected body DSR (-want +got):\n%s", diff)
	}
}

func TestCompute_ExtLinkAndURL(t *testing.T) {
	src := "[http://a.b c] http://x.y"
	body := `<p><a rel="mw:ExtLink" href="http://a.b" data-parsoid='{"tsr":[0,14],"tmp":{"extLinkContentOffsets":[12,13]}}'>c</a> ` +
		`<a rel="mw:ExtLink" href="http://x.y" data-parsoid='{"stx":"url","tsr":[15,25]}'>http://x.y</a></p>`
	doc, _ := compute(t, src, body)

	p := doc.FirstChild(doc.Body())
	ext := doc.FirstChild(p)
	url := doc.LastChild(p)
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 14, 12, 1), dsrOf(t, doc, ext)); diff != "" {
		t.Errorf("Unexpected ext link DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dom.NewDomSourceRange(15, 25, 0, 0), dsrOf(t, doc, url)); diff != "" {
		t.Errorf("Unexpected url link DSR (-want +got):\n%s", diff)
	}
}

func TestCompute_Inconsistency(t *testing.T) {
	doc, logs := compute(t, "abcdefg", `<p>abc</p>`)

	p := doc.FirstChild(doc.Body())
	if diff := cmp.Diff(dom.NewDomSourceRange(4, 7, 0, 0), dsrOf(t, doc, p)); diff != "" {
		t.Errorf("Unexpected p DSR (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "channel=info/dsr/inconsistent") {
		t.Errorf("Expected an inconsistency diagnostic, got %q", logs.String())
	}
}

func TestCompute_AttrExpansionSuppressesTopLevelMismatch(t *testing.T) {
	doc := parseBody(t, `<p>abc</p>`)
	var logs bytes.Buffer
	e := env.New("abcdefg", env.WithLogger(logging.New(&logs, logging.LevelDebug, logging.FormatText)))
	Compute(e, doc, doc.Body(), Options{AttrExpansion: true})
	if logs.Len() != 0 {
		t.Errorf("Expected no diagnostics, got %q", logs.String())
	}
}

func TestCompute_SourceOffsetsAndInTemplate(t *testing.T) {
	doc := parseBody(t, `<p>abc</p>`)
	Compute(env.New("xxabc"), doc, doc.Body(), Options{SourceOffsets: &dom.SourceRange{Start: 2, End: 5}})
	if diff := cmp.Diff(dom.NewDomSourceRange(2, 5, 0, 0), dsrOf(t, doc, doc.Body())); diff != "" {
		t.Errorf("Unexpected body DSR (-want +got):\n%s", diff)
	}

	doc = parseBody(t, `<p>abc</p>`)
	Compute(env.New("abc"), doc, doc.Body(), Options{InTemplate: true})
	if doc.DataParsoid(doc.Body()).DSR != nil {
		t.Errorf("Expected no DSR in template content")
	}
}

func TestCompute_ListWidths(t *testing.T) {
	src := "*a\n**b"
	doc, _ := compute(t, src,
		`<ul><li>a`+"\n"+`<ul><li>b</li></ul></li></ul>`)

	ul := doc.FirstChild(doc.Body())
	outer := doc.FirstChild(ul)
	inner := doc.FirstChild(doc.LastChild(outer))
	if got := dsrOf(t, doc, outer).OpenWidth; got != dom.Known(1) {
		t.Errorf("Expected outer item width 1, got %s", got)
	}
	if got := dsrOf(t, doc, inner).OpenWidth; got != dom.Known(2) {
		t.Errorf("Expected nested item width 2, got %s", got)
	}
	if got := dsrOf(t, doc, inner).Substr(src); got != "**b" {
		t.Errorf("Expected **b, got %q", got)
	}
}

func TestCompute_NegativeEndIsClamped(t *testing.T) {
	doc, logs := compute(t, "", `<span data-parsoid='{"tmp":{"endTSR":[-3,-2]}}'></span>`)

	span := doc.FirstChild(doc.Body())
	if got := dsrOf(t, doc, span).End; got != dom.Known(0) {
		t.Errorf("Expected end clamped to 0, got %s", got)
	}
	if !strings.Contains(logs.String(), "channel=info/dsr/negative") {
		t.Errorf("Expected a negative DSR diagnostic, got %q", logs.String())
	}
}

func TestCompute_StrippedTagCancelledByAutoInsertedEnd(t *testing.T) {
	src := "''a</i>"
	doc, logs := compute(t, src,
		`<p><i data-parsoid='{"tsr":[0,2],"autoInsertedEnd":true}'>a</i>`+
			`<meta typeof="mw:Placeholder/StrippedTag" data-parsoid='{"src":"</i>","name":"i"}'></p>`)

	p := doc.FirstChild(doc.Body())
	i := doc.FirstChild(p)
	meta := doc.NextSibling(i)
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 3, 2, 0), dsrOf(t, doc, i)); diff != "" {
		t.Errorf("Unexpected i DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(unknownWidths(3, 7), dsrOf(t, doc, meta)); diff != "" {
		t.Errorf("Unexpected placeholder DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 7, 0, 0), dsrOf(t, doc, p)); diff != "" {
		t.Errorf("Unexpected p DSR (-want +got):\n%s", diff)
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no diagnostics, got %s", logs.String())
	}
}

func TestCompute_StrippedTagAbsorbedByQuote(t *testing.T) {
	src := "''a''''"
	doc, _ := compute(t, src,
		`<p><i data-parsoid='{"tsr":[0,2]}'>a</i>`+
			`<meta typeof="mw:Placeholder/StrippedTag" data-parsoid='{"src":"&#39;&#39;","name":"i"}'></p>`)

	p := doc.FirstChild(doc.Body())
	i := doc.FirstChild(p)
	meta := doc.NextSibling(i)
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 7, 2, 2), dsrOf(t, doc, i)); diff != "" {
		t.Errorf("Unexpected i DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(unknownWidths(7, 7), dsrOf(t, doc, meta)); diff != "" {
		t.Errorf("Unexpected placeholder DSR (-want +got):\n%s", diff)
	}
	tmp := doc.DataParsoid(meta).Tmp
	if tmp == nil || tmp.OrigDSR == nil {
		t.Fatalf("Expected the placeholder's original DSR to be kept")
	}
	if diff := cmp.Diff(unknownWidths(5, 7), tmp.OrigDSR); diff != "" {
		t.Errorf("Unexpected original DSR (-want +got):\n%s", diff)
	}
}

func TestCompute_SrcWidths(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		body  string
		want  *dom.DomSourceRange
		wantP *dom.DomSourceRange
	}{
		{
			name:  "entity",
			src:   "&amp;x",
			body:  `<p><span typeof="mw:Entity" data-parsoid='{"src":"&amp;amp;"}'>&amp;</span>x</p>`,
			want:  unknownWidths(0, 5),
			wantP: dom.NewDomSourceRange(0, 6, 0, 0),
		},
		{
			name:  "placeholder",
			src:   "a<nowiki/>",
			body:  `<p>a<span typeof="mw:Placeholder" data-parsoid='{"src":"<nowiki/>"}'></span></p>`,
			want:  unknownWidths(1, 10),
			wantP: dom.NewDomSourceRange(0, 10, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, logs := compute(t, tt.src, tt.body)

			p := doc.FirstChild(doc.Body())
			typed := dom.None
			for c := doc.FirstChild(p); c != dom.None; c = doc.NextSibling(c) {
				if doc.IsElement(c) && doc.GetAttribute(c, "typeof") != "" {
					typed = c
				}
			}
			if typed == dom.None {
				t.Fatalf("Expected a typed element in %s", tt.body)
			}
			if diff := cmp.Diff(tt.want, dsrOf(t, doc, typed)); diff != "" {
				t.Errorf("Unexpected DSR (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantP, dsrOf(t, doc, p)); diff != "" {
				t.Errorf("Unexpected p DSR (-want +got):\n%s", diff)
			}
			if logs.Len() != 0 {
				t.Errorf("Expected no diagnostics, got %s", logs.String())
			}
		})
	}
}

func TestCompute_EndTSROverridesEnd(t *testing.T) {
	// The trailing newlines are not in the DOM, so only the end tag range
	// places the span's end.
	src := "<span>a</span>\n\n"
	doc, logs := compute(t, src,
		`<span data-parsoid='{"stx":"html","tsr":[0,6],"tmp":{"endTSR":[7,14]}}'>a</span>`)

	span := doc.FirstChild(doc.Body())
	got := dsrOf(t, doc, span)
	if diff := cmp.Diff(dom.NewDomSourceRange(0, 14, 6, 7), got); diff != "" {
		t.Errorf("Unexpected span DSR (-want +got):\n%s", diff)
	}
	if closing := got.CloseSubstr(src); closing != "</span>" {
		t.Errorf("Expected </span>, got %q", closing)
	}
	if logs.Len() != 0 {
		t.Errorf("Expected no diagnostics, got %s", logs.String())
	}
}

func TestCompute_ExtTagOffsets(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		body        string
		want        *dom.DomSourceRange
		wantCleared bool
	}{
		{
			name:        "meta",
			src:         "<nowiki></nowiki>",
			body:        `<meta typeof="mw:Extension/nowiki" data-parsoid='{"tsr":[0,17],"extTagOffsets":[0,17,8,9]}'>`,
			want:        dom.NewDomSourceRange(0, 17, 8, 9),
			wantCleared: true,
		},
		{
			name: "element",
			src:  "<ref>x</ref>",
			body: `<span typeof="mw:Extension/ref" data-parsoid='{"tsr":[0,12],"extTagOffsets":[0,12,5,6]}'>x</span>`,
			want: dom.NewDomSourceRange(0, 12, 5, 6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, logs := compute(t, tt.src, tt.body)

			n := doc.FirstChild(doc.Body())
			if diff := cmp.Diff(tt.want, dsrOf(t, doc, n)); diff != "" {
				t.Errorf("Unexpected DSR (-want +got):\n%s", diff)
			}
			if cleared := doc.DataParsoid(n).ExtTagOffsets == nil; cleared != tt.wantCleared {
				t.Errorf("Expected extTagOffsets cleared=%v, got %v", tt.wantCleared, cleared)
			}
			if logs.Len() != 0 {
				t.Errorf("Expected no diagnostics, got %s", logs.String())
			}
		})
	}
}

func TestCompute_PropagateRightCreatesDSR(t *testing.T) {
	doc, _ := compute(t, "[[Foo]] xy",
		`<p><a rel="mw:WikiLink" href="./Foo" data-parsoid='{"stx":"simple","tsr":[0,7]}'>Foo</a> `+
			`<span>x</span><span>y</span></p>`)

	p := doc.FirstChild(doc.Body())
	a := doc.FirstChild(p)
	x := doc.NextSibling(doc.NextSibling(a))
	y := doc.NextSibling(x)

	if diff := cmp.Diff(dom.NewDomSourceRange(0, 7, 2, 2), dsrOf(t, doc, a)); diff != "" {
		t.Errorf("Unexpected link DSR (-want +got):\n%s", diff)
	}
	// Neither span has widths to derive offsets from; the link's end is
	// carried across the text onto the first one.
	if diff := cmp.Diff(&dom.DomSourceRange{Start: dom.Known(8)}, dsrOf(t, doc, x)); diff != "" {
		t.Errorf("Unexpected first span DSR (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(&dom.DomSourceRange{End: dom.Known(10)}, dsrOf(t, doc, y)); diff != "" {
		t.Errorf("Unexpected second span DSR (-want +got):\n%s", diff)
	}
}
