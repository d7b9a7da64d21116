// Package rangebuilder finds the DOM ranges produced by transclusions and
// annotations, reduces them to top-level non-overlapping ranges and marks
// them up in the tree.
package rangebuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/env"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/html"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wikitext"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wtutils"
)

// markerKind is what differs between template and annotation ranges.
type markerKind interface {
	// traceType names the trace pass, e.g. "tplwrap".
	traceType() string
	// matchMetaType returns the marker type of n (with /End for end
	// markers), or "" when n is not a marker of this kind.
	matchMetaType(doc *dom.Document, n dom.NodeID) string
	// rangeID returns the id shared by the start and end markers.
	rangeID(doc *dom.Document, n dom.NodeID) string
	// updateDSRForFirstRangeNode is called when the range start moves off
	// the start marker onto target.
	updateDSRForFirstRangeNode(doc *dom.Document, target, source dom.NodeID)
	// verifyTplInfo checks the generation info found on a start marker.
	verifyTplInfo(info *dom.TemplateInfo, tmp *dom.TempData) error
}

// builder holds the state shared by both range kinds during one pass over
// a document.
type builder struct {
	env  *env.Env
	doc  *dom.Document
	kind markerKind

	nodeRanges map[dom.NodeID]*rangeSet
	compound   map[string][]compoundEntry
}

func newBuilder(e *env.Env, doc *dom.Document, kind markerKind) *builder {
	return &builder{
		env:        e,
		doc:        doc,
		kind:       kind,
		nodeRanges: make(map[dom.NodeID]*rangeSet),
		compound:   make(map[string][]compoundEntry),
	}
}

func (b *builder) trace(channel string, fn func() string) {
	b.env.Trace(b.kind.traceType()+"/"+channel, fn)
}

func (b *builder) addNodeRange(n dom.NodeID, r *Range) {
	s := b.nodeRanges[n]
	if s == nil {
		s = &rangeSet{}
		b.nodeRanges[n] = s
	}
	s.add(r)
}

// findWrappableMetaRanges pairs up the start and end markers under root and
// returns the DOM range of each pair in discovery order.
func (b *builder) findWrappableMetaRanges(root dom.NodeID) ([]*Range, error) {
	open := make(map[string]*partialRange)
	var ranges []*Range
	if err := b.findRangesRecursive(root, open, &ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

func (b *builder) findRangesRecursive(root dom.NodeID, open map[string]*partialRange, ranges *[]*Range) error {
	doc := b.doc
	for elem := doc.FirstChild(root); elem != dom.None; {
		// elem may be moved or wrapped below.
		next := doc.NextSibling(elem)
		if !doc.IsElement(elem) {
			elem = next
			continue
		}

		metaType := b.kind.matchMetaType(doc, elem)
		isEnd := strings.HasSuffix(metaType, "/End")

		// Start markers without a TSR are nested in other generated
		// content and can never be edited on their own. End markers may
		// lack one after wikitext errors.
		if metaType == "" || (doc.DataParsoid(elem).TSR == nil && !isEnd) {
			if err := b.findRangesRecursive(elem, open, ranges); err != nil {
				return err
			}
			elem = next
			continue
		}

		about := b.kind.rangeID(doc, elem)
		tpl := open[about]
		switch {
		case !isEnd && tpl != nil:
			tpl.startElem = elem
			if tpl.endElem == dom.None {
				return invariantf("start found after content for %s", about)
			}
			// The end marker was foster-parented ahead of the start.
			r, err := b.getDOMRange(elem, tpl.endElem, tpl.endElem)
			if err != nil {
				return err
			}
			*ranges = append(*ranges, r)

		case !isEnd:
			open[about] = &partialRange{startElem: elem}

		case tpl != nil:
			if tpl.startElem == dom.None {
				return unbalancedf("no start tag found for the range %s", about)
			}
			r, err := b.getDOMRange(tpl.startElem, elem, b.fosteredTableEnd(tpl.startElem, elem, about))
			if err != nil {
				return err
			}
			*ranges = append(*ranges, r)

		default:
			// The end marker was fostered out of a table the start marker
			// is still in, or both were fostered by different tables.
			open[about] = &partialRange{endElem: elem}
		}
		elem = next
	}
	return nil
}

// fosteredTableEnd returns the element a range should end at. When the
// start marker's container was fostered out of the table that follows the
// end marker's container, the range extends over that table.
func (b *builder) fosteredTableEnd(sm, em dom.NodeID, about string) dom.NodeID {
	doc := b.doc
	tbl := doc.NextSibling(doc.Parent(em))
	if doc.IsText(tbl) && doc.Data(tbl) == "\n" {
		tbl = doc.NextSibling(tbl)
	}

	smParent := doc.Parent(sm)
	if wtutils.AtTheTop(doc, smParent) || !doc.IsElementNamed(tbl, "table") {
		return em
	}
	dp := doc.DataParsoid(smParent)
	if dp == nil || !dp.Fostered {
		return em
	}

	tblDP := doc.DataParsoid(tbl)
	if dp.TSR != nil && tblDP.DSR != nil && !tblDP.DSR.Start.Valid {
		tblDP.DSR.Start = dom.Known(dp.TSR.Start)
	}
	doc.SetAttribute(tbl, "about", about)
	return tbl
}

// findEnclosingRange returns a range whose start and end are the children
// of the closest common ancestor of startMeta and endElem (endMeta when
// endElem is None) on the paths to either marker.
func (b *builder) findEnclosingRange(startMeta, endMeta, endElem dom.NodeID) (*Range, error) {
	doc := b.doc
	r := &Range{
		ID:        wtutils.StripParsoidIDPrefix(b.kind.rangeID(doc, startMeta)),
		StartElem: startMeta,
		EndElem:   endMeta,
	}
	if tsr := doc.DataParsoid(startMeta).TSR; tsr != nil {
		r.StartOffset = tsr.Start
	}

	startAncestors := doc.PathToRoot(startMeta)
	index := make(map[dom.NodeID]int, len(startAncestors))
	for i, n := range startAncestors {
		index[n] = i
	}

	elem := endElem
	if elem == dom.None {
		elem = endMeta
	}
	for parent := doc.Parent(elem); parent != dom.None && doc.NodeType(parent) != dom.DocumentNode; parent = doc.Parent(elem) {
		if i, ok := index[parent]; ok {
			if i == 0 {
				return nil, invariantf("the start marker of %s cannot be the common ancestor", r.ID)
			}
			r.Start = startAncestors[i-1]
			r.End = elem
			return r, nil
		}
		elem = parent
	}
	return nil, invariantf("markers of %s share no ancestor below the document", r.ID)
}

// getDOMRange computes the range of a marker pair and reconciles its start
// with foster parenting so that it begins at an element.
func (b *builder) getDOMRange(startMeta, endMeta, endElem dom.NodeID) (*Range, error) {
	doc := b.doc
	r, err := b.findEnclosingRange(startMeta, endMeta, endElem)
	if err != nil {
		return nil, err
	}

	startsInFosterablePosn := wtutils.IsFosterablePosition(doc, r.Start)
	next := doc.NextSibling(r.Start)

	switch {
	case wtutils.IsTplMarkerMeta(doc, r.Start) && next == endElem:
		// Empty content.
		if r.Start != r.StartElem {
			return nil, invariantf("expected the start of empty range %s to be its start marker", r.ID)
		}
		if startsInFosterablePosn {
			r.Start = doc.Parent(r.Start)
			r.End = r.Start
		} else {
			doc.InsertBefore(doc.Parent(r.Start), doc.CreateElement("span"), endElem)
		}

	case startsInFosterablePosn && (!doc.IsElement(r.Start) ||
		(wtutils.IsTplMarkerMeta(doc, r.Start) &&
			(!doc.IsElement(next) || wtutils.IsTplMarkerMeta(doc, next)))):
		// Marker metas are added after tree building, so they can sit in
		// fosterable positions. Any non-element here is whitespace or a
		// comment; skip to the first table content node.
		parent := doc.Parent(r.Start)
		noWS := true
		var toMigrate []dom.NodeID
		newStart := r.Start
		n := r.Start
		if doc.IsElement(r.Start) {
			n = next
		}
		for n != dom.None && !doc.IsElement(n) {
			if doc.IsText(n) {
				noWS = false
			}
			toMigrate = append(toMigrate, n)
			n = doc.NextSibling(n)
			newStart = n
		}

		// Whitespace pushed into th/td/caption would change rendering.
		if newStart != dom.None && (noWS || wikitext.IsTableBodyOrRow(doc.NodeName(newStart))) {
			insertAt := doc.FirstChild(newStart)
			for _, m := range toMigrate {
				doc.InsertBefore(newStart, m, insertAt)
			}
			r.Start = newStart
			b.kind.updateDSRForFirstRangeNode(doc, r.Start, r.StartElem)
		} else {
			r.Start = parent
			r.End = parent
		}
	}

	// Range data is attached to the start, so it has to be an element.
	if !doc.IsElement(r.Start) {
		span := doc.CreateElement("span")
		doc.InsertBefore(doc.Parent(r.Start), span, r.Start)
		doc.AppendChild(span, r.Start)
		r.Start = span
		b.kind.updateDSRForFirstRangeNode(doc, r.Start, r.StartElem)
	}

	r.Start = b.startConsideringFosteredContent(r.Start)

	// A foster-parented end marker can end up ahead of a table start.
	if !doc.InSiblingOrder(r.Start, r.End) {
		r.Flipped = true
	}

	b.trace("findranges", func() string {
		return fmt.Sprintf("Found %s\n  start-elem: %s\n  end-elem: %s\n  start: %s\n  end: %s",
			r, html.OuterHTML(doc, r.StartElem), html.OuterHTML(doc, r.EndElem),
			html.OuterHTML(doc, r.Start), html.OuterHTML(doc, r.End))
	})
	return r, nil
}

// startConsideringFosteredContent extends a table start over the content
// fostered out of it.
func (b *builder) startConsideringFosteredContent(n dom.NodeID) dom.NodeID {
	doc := b.doc
	if !doc.IsElementNamed(n, "table") {
		return n
	}
	for prev := doc.PreviousSibling(n); doc.IsElement(prev) && doc.DataParsoid(prev).Fostered; prev = doc.PreviousSibling(n) {
		n = prev
	}
	return n
}

// stripStartMeta removes a start marker meta. Other start elements keep
// their place and only lose their mw:* types.
func (b *builder) stripStartMeta(n dom.NodeID) {
	doc := b.doc
	if doc.IsElementNamed(n, "meta") {
		doc.Remove(n)
		return
	}
	if t, ok := doc.Attribute(n, "typeof"); ok {
		doc.SetAttribute(n, "typeof", wtutils.StripMWTypes(t))
	}
}

// topLevelEnclosingRange follows the nesting map from id to the outermost
// range. It returns "" when id is "".
func topLevelEnclosingRange(nesting map[string]string, id string) (string, error) {
	visited := make(map[string]bool)
	for {
		next, ok := nesting[id]
		if !ok {
			return id, nil
		}
		if visited[id] {
			return "", invariantf("found a cycle in range nesting at %s", id)
		}
		visited[id] = true
		id = next
	}
}

// introducesCycle reports whether recording start as nested in end would
// close a loop in the nesting map.
func introducesCycle(start, end string, nesting map[string]string) bool {
	visited := map[string]bool{start: true}
	for elt, ok := nesting[end]; ok; elt, ok = nesting[elt] {
		if visited[elt] {
			return true
		}
		visited[elt] = true
	}
	return false
}

func (b *builder) rangesOverlap(prev, curr *Range) bool {
	return b.doc.InSiblingOrder(curr.first(), prev.last())
}

// recordTemplateInfo appends the generation info of r to the part list of
// the compound unit id, preceded by any wikitext between it and the
// previous part.
func (b *builder) recordTemplateInfo(id string, r *Range, info *dom.TemplateInfo) {
	doc := b.doc
	parts := b.compound[id]
	dp := doc.DataParsoid(r.StartElem)
	dsr := dp.DSR

	if n := len(parts); n > 0 {
		prev := parts[n-1]
		if prev.dsr != nil && dsr != nil && prev.dsr.End.Valid && dsr.Start.Valid && prev.dsr.End.N < dsr.Start.N {
			parts = append(parts, compoundEntry{
				wikitext: dom.Substr(b.env.Src, prev.dsr.End.N, dsr.Start.N-prev.dsr.End.N),
			})
		}
	}

	if dp.UnwrappedWT != "" {
		parts = append(parts, compoundEntry{wikitext: dp.UnwrappedWT})
	}

	// Source offsets of arguments are not needed past this point.
	for i := range info.ParamInfos {
		info.ParamInfos[i].SrcOffsets = nil
	}
	b.compound[id] = append(parts, compoundEntry{
		info:    info,
		dsr:     dsr,
		isParam: doc.HasTypeOf(r.StartElem, "mw:Param"),
	})
}

// findTopLevelNonOverlappingRanges drops the ranges nested in others and
// merges overlapping ones. Markers of dropped and merged ranges are removed
// from the tree. The surviving ranges are returned in source order.
func (b *builder) findTopLevelNonOverlappingRanges(docRoot dom.NodeID, ranges []*Range) ([]*Range, error) {
	doc := b.doc

	// Record on every top-level element of each range the ranges it
	// belongs to.
	for _, r := range ranges {
		e := r.last()
		for n := r.first(); n != dom.None; n = doc.NextSibling(n) {
			if doc.IsElement(n) {
				b.addNodeRange(n, r)
				if n == e {
					break
				}
			}
		}
	}

	// nesting maps a range id to the id of a range it is subsumed by. It
	// starts out with nested ranges only; overlaps are added in the merge
	// loop below so that info of a range nested in a merged range reaches
	// the right compound unit.
	nesting := make(map[string]string)
	byID := make(map[string]*Range, len(ranges))
	for _, r := range ranges {
		byID[r.ID] = r
	}

	// For each range, walk up from its start. Any other range attached to
	// an ancestor encloses it.
	for _, r := range ranges {
		for n := r.Start; n != dom.None && n != docRoot; n = doc.Parent(n) {
			set := b.nodeRanges[n]
			if set.empty() {
				continue
			}
			if n != r.Start {
				outermost := ""
				for _, id := range set.ids {
					if outermost == "" || set.byID[id].StartOffset < set.byID[outermost].StartOffset {
						outermost = id
					}
				}
				nesting[r.ID] = outermost
				break
			}

			// A range attached to both ends of r encloses it, unless the
			// two are identical and r comes first in the source.
			eRanges := b.nodeRanges[r.End]
			foundNesting := false
			for _, otherID := range set.ids {
				other := set.byID[otherID]
				if otherID == r.ID || !eRanges.has(otherID) {
					continue
				}
				if r.Start == other.Start && r.End == other.End && other.StartOffset >= r.StartOffset {
					continue
				}
				if introducesCycle(r.ID, otherID, nesting) {
					continue
				}
				foundNesting = true
				cur, ok := nesting[r.ID]
				if !ok || other.StartOffset < byID[cur].StartOffset {
					nesting[r.ID] = otherID
				}
			}
			if foundNesting {
				break
			}
		}
	}

	sorted := make([]*Range, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset < sorted[j].StartOffset
	})

	// Ranges are in source order and nested ones are known, so an overlap
	// can only be with the previous surviving range.
	var topLevel []*Range
	var prev *Range
	for _, r := range sorted {
		var endToRemove, startToStrip dom.NodeID

		tmp := doc.DataParsoid(r.StartElem).Temp()
		info := tmp.TplArgInfo
		if err := b.kind.verifyTplInfo(info, tmp); err != nil {
			return nil, fmt.Errorf("range %s: %w", r.ID, err)
		}

		b.trace("merge", func() string {
			return fmt.Sprintf("%s\n  start-elem: %s\n  end-elem: %s",
				r, html.OuterHTML(doc, r.StartElem), html.OuterHTML(doc, r.EndElem))
		})

		enclosing := ""
		if sub, ok := nesting[r.ID]; ok {
			id, err := topLevelEnclosingRange(nesting, sub)
			if err != nil {
				return nil, err
			}
			enclosing = id
		}

		switch {
		case enclosing != "":
			b.trace("merge", func() string { return "--nested in " + enclosing + "--" })
			startToStrip = r.StartElem
			endToRemove = r.EndElem
			if info != nil {
				b.recordTemplateInfo(enclosing, r, info)
			}

		case prev != nil && b.rangesOverlap(prev, r):
			// Usually r starts where prev ends; fostered content can make
			// them truly overlap.
			b.trace("merge", func() string { return "--overlapped--" })
			nesting[r.ID] = prev.ID

			// A transcluded table emits no foster box, so a flipped range
			// can only come from an unclosed table whose end marker got
			// fostered; it should have been enclosed.
			if r.Flipped {
				return nil, invariantf("flipped range %s should have been enclosed", r.ID)
			}

			startToStrip = r.StartElem
			endToRemove = prev.EndElem

			prev.End = r.End
			prev.EndElem = r.EndElem
			if wtutils.IsMarkerAnnotation(doc, r.EndElem) {
				doc.DataMw(r.EndElem).RangeID = r.ID
				prev.ExtendedByOverlapMerge = true
			}
			if info != nil {
				b.recordTemplateInfo(prev.ID, r, info)
			}

		default:
			b.trace("merge", func() string { return "--normal--" })
			topLevel = append(topLevel, r)
			prev = r
			if info != nil {
				b.recordTemplateInfo(r.ID, r, info)
			}
		}

		// Inner markers of a subsumed range would dangle, even for annotations.
		if endToRemove != dom.None {
			doc.Remove(endToRemove)
			b.stripStartMeta(startToStrip)
		}
	}

	return topLevel, nil
}

// getRangeEndDSR returns the DSR of the last node of r. A trailing text or
// comment node gets a range extrapolated from the closest element before
// it.
func (b *builder) getRangeEndDSR(r *Range) *dom.DomSourceRange {
	doc := b.doc
	end := r.End
	if doc.IsElement(end) {
		return doc.DataParsoid(end).DSR
	}

	offset := 0
	n := doc.PreviousSibling(end)
	for n != dom.None && !doc.IsElement(n) {
		offset += nodeWidth(doc, n)
		n = doc.PreviousSibling(n)
	}
	if n == dom.None {
		return nil
	}

	dsr := doc.DataParsoid(n).DSR
	if dsr == nil || !dsr.End.Valid {
		return dsr
	}
	start := dsr.End.N + offset
	return &dom.DomSourceRange{
		Start: dom.Known(start),
		End:   dom.Known(start + nodeWidth(doc, end)),
	}
}

// nodeWidth is the source width of a text or comment node.
func nodeWidth(doc *dom.Document, n dom.NodeID) int {
	if doc.IsComment(n) {
		return wikitext.DecodedCommentLength(doc.Data(n))
	}
	return len(doc.Data(n))
}
