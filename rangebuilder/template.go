package rangebuilder

import (
	"fmt"
	"strings"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/env"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/html"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wtutils"
)

type templateKind struct{}

func (templateKind) traceType() string { return "tplwrap" }

func (templateKind) matchMetaType(doc *dom.Document, n dom.NodeID) string {
	return wtutils.MatchTplType(doc, n)
}

func (templateKind) rangeID(doc *dom.Document, n dom.NodeID) string {
	return doc.GetAttribute(n, "about")
}

// updateDSRForFirstRangeNode keeps a larger end already computed for
// target. Template content has no TSRs, so its DSRs are inferred from the
// top-level values and are safe to keep.
func (templateKind) updateDSRForFirstRangeNode(doc *dom.Document, target, source dom.NodeID) {
	src := doc.DataParsoid(source)
	tgt := doc.DataParsoid(target)
	if src.DSR != nil && tgt.DSR != nil && src.DSR.End.Valid && tgt.DSR.End.Valid &&
		tgt.DSR.End.N > src.DSR.End.N {
		tgt.DSR.Start = src.DSR.Start
		return
	}
	tgt.DSR = src.DSR.Clone()
	tgt.Src = src.Src
}

func (templateKind) verifyTplInfo(info *dom.TemplateInfo, tmp *dom.TempData) error {
	// Missing info usually means wrapping ran on nested content.
	if info == nil && !tmp.FromFoster {
		return invariantf("template range without arginfo")
	}
	return nil
}

// WrapTemplates encapsulates the output of every transclusion under root.
// Each top-level range gets the about id of its markers on all of its
// top-level nodes, and its first element gets the typeof, data-mw parts
// and DSR of the whole unit. The marker metas are removed.
func WrapTemplates(e *env.Env, doc *dom.Document, root dom.NodeID) error {
	b := newBuilder(e, doc, templateKind{})
	ranges, err := b.findWrappableMetaRanges(root)
	if err != nil {
		return err
	}
	if len(ranges) == 0 {
		return nil
	}
	topLevel, err := b.findTopLevelNonOverlappingRanges(root, ranges)
	if err != nil {
		return err
	}
	return b.encapsulateTemplates(topLevel)
}

// ensureElementsInRange gives every top-level node of r the about id of
// its unit, wrapping non-elements in spans.
func (b *builder) ensureElementsInRange(r *Range) {
	doc := b.doc
	about := doc.GetAttribute(r.StartElem, "about")
	for n := r.Start; n != dom.None; {
		next := doc.NextSibling(n)
		switch {
		case doc.IsElement(n):
			doc.SetAttribute(n, "about", about)
		case wtutils.IsFosterablePosition(doc, n):
			// Only inter-element whitespace survives in a fosterable
			// position, and data-mw already captures it.
			doc.Remove(n)
		default:
			span := doc.CreateElement("span")
			doc.SetAttribute(span, "about", about)
			doc.DataParsoid(span).Temp().Wrapper = true
			doc.ReplaceChild(doc.Parent(n), span, n)
			doc.AppendChild(span, n)
			n = span
		}
		if n == r.End {
			break
		}
		n = next
	}
}

// findEncapTarget returns the first element of r that is not a marker.
// Anything skipped on the way must be whitespace in a fosterable position.
func (b *builder) findEncapTarget(r *Range) (dom.NodeID, error) {
	doc := b.doc
	tgt := r.Start
	for tgt != dom.None && (wtutils.IsTplMarkerMeta(doc, tgt) || !doc.IsElement(tgt)) {
		if !doc.IsElement(tgt) && !wtutils.IsFosterablePosition(doc, tgt) {
			return dom.None, invariantf("cannot encapsulate transclusion %s: %s",
				r.ID, html.OuterHTML(doc, r.StartElem))
		}
		if tgt == r.End {
			return dom.None, nil
		}
		tgt = doc.NextSibling(tgt)
	}
	return tgt, nil
}

// findFirstTemplatedNode names the first node of r that came from a
// template, as NAME or NAME_stx. Fostered nodes came from inside a table
// and are skipped. Metas stand for too many things to be useful here and
// yield "".
func (b *builder) findFirstTemplatedNode(r *Range) string {
	doc := b.doc
	n := r.Start
	if wtutils.IsTplMarkerMeta(doc, n) {
		n = doc.NextSibling(n)
	}
	for doc.IsElement(n) && doc.DataParsoid(n).Fostered {
		n = doc.NextSibling(n)
	}
	if !doc.IsElement(n) || doc.IsElementNamed(n, "meta") {
		return ""
	}
	name := strings.ToUpper(doc.NodeName(n))
	if stx := doc.DataParsoid(n).Stx; stx != "" {
		return name + "_" + stx
	}
	return name
}

func (b *builder) encapsulateTemplates(ranges []*Range) error {
	doc := b.doc
	for i, r := range ranges {
		b.ensureElementsInRange(r)

		entries := b.compound[r.ID]
		if len(entries) == 0 {
			return invariantf("no parts for template range %s", r.ID)
		}

		tgt, err := b.findEncapTarget(r)
		if err != nil {
			return err
		}
		if tgt == dom.None {
			b.env.Error("error", "cannot encapsulate transclusion",
				"range", r.ID, "start", html.OuterHTML(doc, r.StartElem))
			b.removeMarkers(r)
			continue
		}
		encapDP := doc.DataParsoid(tgt)

		// The type is copied even when encapsulation below fails so that
		// the content stays protected from direct edits.
		startElem := r.StartElem
		if startElem != tgt {
			types := doc.TypeOf(startElem)
			for j := len(types) - 1; j >= 0; j-- {
				doc.AddTypeOf(tgt, types[j], true)
			}
		}

		// The unit spans from the start of r.Start to the end of r.End.
		// When r.End is a table and r.Start was fostered out of it, the
		// table starts first.
		dp1 := doc.DataParsoid(r.Start)
		dp1DSR := dp1.DSR.Clone()
		dp2DSR := b.getRangeEndDSR(r)
		encapValid := false
		if dp1DSR != nil {
			if dp2DSR != nil {
				if dp2DSR.End.Valid && (!dp1DSR.End.Valid || dp2DSR.End.N > dp1DSR.End.N) {
					dp1DSR.End = dp2DSR.End
				}
				if doc.IsElementNamed(r.End, "table") && dp2DSR.Start.Valid &&
					((dp1DSR.Start.Valid && dp2DSR.Start.N < dp1DSR.Start.N) || dp1.Fostered) {
					dp1DSR.Start = dp2DSR.Start
				}
			}
			encapValid = dp1DSR.IsValid() && dp1DSR.End.N >= dp1DSR.Start.N
		}

		if encapValid {
			b.setParts(r, tgt, encapDP, entries, dp1DSR)
		} else {
			b.env.Error("error", fmt.Sprintf("Do not have necessary info. to encapsulate Tpl: %d", i),
				"start_elt", html.OuterHTML(doc, startElem),
				"end_elt", html.OuterHTML(doc, r.EndElem),
				"start_dsr", dp1DSR.String(),
				"end_dsr", dp2DSR.String())
		}

		// A fostered unit has no width unless it also captured the table
		// it was fostered from.
		if dp1.Fostered && dp1DSR != nil && len(doc.DataMw(tgt).Parts) <= 1 {
			dp1DSR.End = dp1DSR.Start
		}

		if encapValid {
			if encapDP.DSR == nil {
				encapDP.DSR = dp1DSR
			} else {
				encapDP.DSR.Start = dp1DSR.Start
				encapDP.DSR.End = dp1DSR.End
			}
			encapDP.Src = encapDP.DSR.Substr(b.env.Src)
		}

		b.removeMarkers(r)
	}
	return nil
}

// setParts builds the data-mw parts of the unit in r from its compound
// entries, adding the wikitext around the transclusions that the unit
// also covers.
func (b *builder) setParts(r *Range, tgt dom.NodeID, encapDP *dom.DataParsoid, entries []compoundEntry, dsr *dom.DomSourceRange) {
	doc := b.doc
	src := b.env.Src

	first := entries[0]
	if first.isLiteral() && len(entries) > 1 {
		first = entries[1]
	}
	if first.dsr != nil && first.dsr.Start.Valid && first.dsr.Start.N > dsr.Start.N {
		// Content ahead of the first transclusion makes this a mixed
		// block. Newline constraints for the block are resolved against
		// its first node.
		if ftn := b.findFirstTemplatedNode(r); ftn != "" {
			encapDP.FirstWikitextNode = ftn
		}
		lead := compoundEntry{wikitext: dom.Substr(src, dsr.Start.N, first.dsr.Start.N-dsr.Start.N)}
		entries = append([]compoundEntry{lead}, entries...)
	}

	last := entries[len(entries)-1]
	if last.dsr != nil && last.dsr.End.Valid && last.dsr.End.N < dsr.End.N {
		entries = append(entries, compoundEntry{
			wikitext: dom.Substr(src, last.dsr.End.N, dsr.End.N-last.dsr.End.N),
		})
	}

	parts := make([]dom.Part, 0, len(entries))
	pi := make([][]dom.ParamInfo, 0, len(entries))
	idx := 0
	for _, c := range entries {
		if c.isLiteral() {
			parts = append(parts, dom.Part{Wikitext: c.wikitext})
			continue
		}
		c.info.I = idx
		idx++
		switch {
		case c.isParam:
			c.info.Type = "templatearg"
		case c.info.Func() != "":
			c.info.Type = "parserfunction"
		default:
			c.info.Type = "template"
		}
		parts = append(parts, dom.Part{Info: c.info})
		pi = append(pi, append([]dom.ParamInfo{}, c.info.ParamInfos...))
	}

	// Other data-mw keys (extension info) are kept.
	doc.DataMw(tgt).Parts = parts
	encapDP.PI = pi

	// Mixed attribute and content templates record their first node
	// while expanding attributes; that beats guessing past fostered
	// content.
	if ftn := doc.DataParsoid(r.StartElem).FirstWikitextNode; encapDP.FirstWikitextNode == "" && ftn != "" {
		encapDP.FirstWikitextNode = ftn
	}
}

// removeMarkers drops the start marker of r, if it is a meta, and its end
// marker.
func (b *builder) removeMarkers(r *Range) {
	if wtutils.IsTplMarkerMeta(b.doc, r.StartElem) {
		b.doc.Remove(r.StartElem)
	}
	b.doc.Remove(r.EndElem)
}
