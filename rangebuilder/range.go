package rangebuilder

import (
	"fmt"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
)

// Range describes the DOM extent of one generated unit: a transclusion, an
// extension output or an annotation.
type Range struct {
	// ID is the unit's id with any "#mwt" prefix stripped.
	ID string
	// StartOffset is the source offset of the start marker.
	StartOffset int
	// StartElem and EndElem are the marker elements as first discovered.
	StartElem dom.NodeID
	EndElem   dom.NodeID
	// Start and End are the current boundary nodes. They begin as the
	// outermost siblings enclosing the markers and may be widened.
	Start dom.NodeID
	End   dom.NodeID
	// Flipped is set when foster parenting moved End before Start.
	Flipped bool
	// ExtendedByOverlapMerge is set once the range absorbed an overlapping
	// one.
	ExtendedByOverlapMerge bool
}

func (r *Range) String() string {
	return fmt.Sprintf("range %s @%d [%d..%d] flipped=%t", r.ID, r.StartOffset, r.Start, r.End, r.Flipped)
}

// first and last return the boundaries in document order.
func (r *Range) first() dom.NodeID {
	if r.Flipped {
		return r.End
	}
	return r.Start
}

func (r *Range) last() dom.NodeID {
	if r.Flipped {
		return r.Start
	}
	return r.End
}

// rangeSet is the set of ranges attached to one node, kept in insertion
// order so that classification is deterministic.
type rangeSet struct {
	ids  []string
	byID map[string]*Range
}

func (s *rangeSet) add(r *Range) {
	if s.byID == nil {
		s.byID = make(map[string]*Range)
	}
	if _, ok := s.byID[r.ID]; !ok {
		s.ids = append(s.ids, r.ID)
	}
	s.byID[r.ID] = r
}

func (s *rangeSet) has(id string) bool {
	return s != nil && s.byID[id] != nil
}

func (s *rangeSet) get(id string) *Range {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

func (s *rangeSet) empty() bool {
	return s == nil || len(s.ids) == 0
}

// partialRange tracks the markers of an id seen so far during discovery.
type partialRange struct {
	startElem dom.NodeID
	endElem   dom.NodeID
}

// compoundEntry is one element of a compound unit's part list: either a
// literal wikitext gap or the generation info of one transclusion.
type compoundEntry struct {
	wikitext string
	info     *dom.TemplateInfo
	dsr      *dom.DomSourceRange
	isParam  bool
}

func (c compoundEntry) isLiteral() bool {
	return c.info == nil
}
