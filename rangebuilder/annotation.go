package rangebuilder

import (
	"errors"
	"fmt"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/env"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wtutils"
)

type annotationKind struct{}

func (annotationKind) traceType() string { return "annwrap" }

func (annotationKind) matchMetaType(doc *dom.Document, n dom.NodeID) string {
	return wtutils.MatchAnnotationMeta(doc, n)
}

func (annotationKind) rangeID(doc *dom.Document, n dom.NodeID) string {
	return doc.DataMw(n).RangeID
}

// Annotated content keeps its own DSR.
func (annotationKind) updateDSRForFirstRangeNode(*dom.Document, dom.NodeID, dom.NodeID) {}

func (annotationKind) verifyTplInfo(*dom.TemplateInfo, *dom.TempData) error { return nil }

// WrapAnnotations reconciles annotation marker pairs under root with the
// tree. Markers stay in place as long as they already bracket siblings;
// otherwise they are moved out to a common parent and the range is wrapped
// in an uneditable mw:ExtendedAnnRange container. Different annotation
// types are processed independently so that they may nest.
//
// When the marker pairs cannot be matched up the document is left as is
// and a warning is logged.
func WrapAnnotations(e *env.Env, doc *dom.Document, root dom.NodeID) error {
	b := newBuilder(e, doc, annotationKind{})
	ranges, err := b.findWrappableMetaRanges(root)
	if errors.Is(err, ErrUnbalancedRange) {
		e.Warn("warn", "The annotation ranges could not be fully detected. Annotation processing cancelled.",
			"error", err)
		return nil
	}
	if err != nil {
		return err
	}

	var types []string
	byType := make(map[string][]*Range)
	for _, r := range ranges {
		t := wtutils.ExtractAnnotationType(doc, r.StartElem)
		if _, ok := byType[t]; !ok {
			types = append(types, t)
		}
		byType[t] = append(byType[t], r)
	}

	for _, t := range types {
		b.nodeRanges = make(map[dom.NodeID]*rangeSet)
		topRanges, err := b.findTopLevelNonOverlappingRanges(root, byType[t])
		if err != nil {
			return fmt.Errorf("annotation %s: %w", t, err)
		}
		if err := b.wrapAnnotationsInTree(topRanges); err != nil {
			return fmt.Errorf("annotation %s: %w", t, err)
		}
		for _, r := range topRanges {
			var start, end dom.Offset
			if dsr := doc.DataParsoid(r.Start).DSR; dsr != nil {
				start = dsr.Start
			}
			if dsr := doc.DataParsoid(r.End).DSR; dsr != nil {
				end = dsr.End
			}
			extended := b.isExtended(r)
			if extended {
				b.makeUneditable(r, start, end)
			}
			b.setMetaDataMw(r, extended)
		}
	}
	return nil
}

// wrapAnnotationsInTree moves the markers of each range onto its
// boundaries and then up to a common parent.
func (b *builder) wrapAnnotationsInTree(ranges []*Range) error {
	doc := b.doc
	for _, r := range ranges {
		if r.StartElem != r.Start {
			b.moveRangeStart(r, r.Start)
		}
		if r.EndElem != r.End {
			b.moveRangeEnd(r, r.End)
		}

		if doc.ParentElement(r.Start) == doc.ParentElement(r.End) {
			continue
		}
		corrected, err := b.findEnclosingRange(r.Start, r.End, dom.None)
		if err != nil {
			return err
		}
		if r.Start != corrected.Start {
			b.moveRangeStart(r, corrected.Start)
		}
		if r.End != corrected.End {
			b.moveRangeEnd(r, corrected.End)
		}
	}
	return nil
}

// moveRangeStart puts the start marker of r right before n. Moving it out
// of the front of a paragraph is not an extension of the range; the
// paragraph's DSR is trimmed instead.
func (b *builder) moveRangeStart(r *Range, n dom.NodeID) {
	doc := b.doc
	startMeta := r.StartElem
	startDP := doc.DataParsoid(startMeta)
	if doc.IsElement(n) {
		if doc.IsElementNamed(n, "p") && doc.FirstChild(n) == startMeta {
			if pDSR, mDSR := doc.DataParsoid(n).DSR, startDP.DSR; pDSR != nil && mDSR != nil {
				pDSR.Start = mDSR.End
			}
		} else {
			startDP.WasMoved = true
		}
	}

	n = b.startConsideringFosteredContent(n)
	doc.InsertBefore(doc.Parent(n), startMeta, n)
	if about, ok := doc.Attribute(n, "about"); ok && doc.IsElement(n) {
		doc.SetAttribute(startMeta, "about", about)
	}
	r.Start = startMeta
}

// moveRangeEnd puts the end marker of r right after n. Moving it out of the
// end of a paragraph trims the paragraph's DSR and takes its trailing
// newlines along.
func (b *builder) moveRangeEnd(r *Range, n dom.NodeID) {
	doc := b.doc
	endMeta := r.EndElem
	endDP := doc.DataParsoid(endMeta)
	if doc.IsElement(n) {
		wasLastChild := doc.LastChild(n) == endMeta
		doc.InsertBefore(doc.Parent(n), endMeta, doc.NextSibling(n))
		if about, ok := doc.Attribute(n, "about"); ok {
			doc.SetAttribute(endMeta, "about", about)
		}

		pDSR := doc.DataParsoid(n).DSR
		if doc.IsElementNamed(n, "p") && wasLastChild && pDSR != nil {
			if endDP.DSR != nil {
				pDSR.End = endDP.DSR.Start
			}
			prevLen := len(doc.TextContent(n))
			MigrateTrailingNLs(doc, n)
			if moved := prevLen - len(doc.TextContent(n)); moved != 0 {
				pDSR.End = pDSR.End.Add(-moved)
			}
		} else {
			endDP.WasMoved = true
		}
	}
	r.End = endMeta
}

func (b *builder) isExtended(r *Range) bool {
	if r.ExtendedByOverlapMerge {
		return true
	}
	return b.doc.DataParsoid(r.StartElem).WasMoved || b.doc.DataParsoid(r.EndElem).WasMoved
}

// makeUneditable wraps the markers of r and everything between them in an
// mw:ExtendedAnnRange container spanning [start, end] of the source. If the
// end marker is not a following sibling of the start marker, the wrapper
// runs to the end of the parent.
func (b *builder) makeUneditable(r *Range, start, end dom.Offset) {
	doc := b.doc
	parent := doc.Parent(r.StartElem)

	inline := true
	n := r.StartElem
	for ; n != r.EndElem && n != dom.None; n = doc.NextSibling(n) {
		if wtutils.HasBlockTag(doc, n) {
			inline = false
			break
		}
	}
	if inline && n != dom.None && wtutils.HasBlockTag(doc, n) {
		inline = false
	}

	tag := "span"
	if !inline {
		tag = "div"
	}
	wrap := doc.CreateElement(tag)
	doc.InsertBefore(parent, wrap, r.StartElem)

	toMove := r.StartElem
	for toMove != r.EndElem && toMove != dom.None {
		next := doc.NextSibling(toMove)
		doc.AppendChild(wrap, toMove)
		toMove = next
	}
	if toMove != dom.None {
		doc.AppendChild(wrap, toMove)
	} else {
		b.env.Warn("warn", fmt.Sprintf("End of annotation range [%s, %s] not found. Document marked uneditable until its end.",
			start, end))
	}

	doc.SetAttribute(wrap, "typeof", "mw:ExtendedAnnRange")

	// Keep about-id continuity with the neighbouring transclusion.
	about, hasAbout := doc.Attribute(r.StartElem, "about")
	prev := doc.PreviousElementSibling(r.StartElem)
	next := doc.NextElementSibling(r.EndElem)
	continuity := (prev != dom.None && doc.HasAttribute(prev, "about")) ||
		(next != dom.None && doc.HasAttribute(next, "about"))
	if hasAbout && about != "" && continuity {
		doc.SetAttribute(wrap, "about", about)
	}

	var source string
	if dsr := doc.DataParsoid(r.StartElem).DSR; dsr != nil {
		source = dsr.Source
	}
	doc.SetDataParsoid(wrap, &dom.DataParsoid{
		AutoInsertedStart: true,
		AutoInsertedEnd:   true,
		DSR: &dom.DomSourceRange{
			Start:      start,
			End:        end,
			OpenWidth:  dom.Known(0),
			CloseWidth: dom.Known(0),
			Source:     source,
		},
	})
}

// setMetaDataMw records the outcome on the markers of r. The range id on
// the end marker was only needed to pair it up.
func (b *builder) setMetaDataMw(r *Range, extended bool) {
	doc := b.doc
	startMw := doc.DataMw(r.StartElem)
	endMw := doc.DataMw(r.EndElem)
	startMw.ExtendedRange = &extended
	startMw.WtOffsets = cloneSourceRange(doc.DataParsoid(r.StartElem).TSR)
	endMw.WtOffsets = cloneSourceRange(doc.DataParsoid(r.EndElem).TSR)
	endMw.RangeID = ""
}

func cloneSourceRange(r *dom.SourceRange) *dom.SourceRange {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
