// Package dsr assigns DOM source ranges to every element of a document
// built from wikitext.
//
// TSR ("tag source range") is set by the tokenizer. For most tags it covers
// only the opening tag. For constructs the tokenizer emits as a single
// self-closing token (wikilinks, marker metas, void tags) it covers the whole
// subtree: [[Foo]] gets TSR [0,7] and the <a> it becomes gets DSR [0,7,2,2].
//
// DSR ("DOM source range") gives the wikitext span of an element's whole
// subtree along with the widths of its opening and closing markup.
package dsr

import (
	"fmt"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/env"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wikitext"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/wtutils"
)

// Options govern a Compute run.
type Options struct {
	// SourceOffsets bounds the wikitext the root spans. Defaults to the
	// whole env source.
	SourceOffsets *dom.SourceRange
	// AttrExpansion marks attribute-expansion documents, whose top-level
	// offsets are not tracked.
	AttrExpansion bool
	// InTemplate makes Compute a no-op; template content has no offsets
	// in the top-level source.
	InTemplate bool
}

// Compute assigns a DSR to every element under root.
func Compute(e *env.Env, doc *dom.Document, root dom.NodeID, opts Options) {
	if opts.InTemplate {
		return
	}

	start, end := 0, len(e.Src)
	if opts.SourceOffsets != nil {
		start, end = opts.SourceOffsets.Start, opts.SourceOffsets.End
	}

	c := &computer{env: e, doc: doc, attrExpansion: opts.AttrExpansion}
	e.Trace("dsr", func() string { return "------- tracing DSR computation -------" })
	c.computeNodeDSR(root, dom.Known(start), dom.Known(end), 0)

	if doc.IsElement(root) {
		doc.DataParsoid(root).DSR = dom.NewDomSourceRange(start, end, 0, 0)
	}
	e.Trace("dsr", func() string { return "------- done tracing computation -------" })
}

type computer struct {
	env           *env.Env
	doc           *dom.Document
	attrExpansion bool
}

func (c *computer) trace(fn func() string) {
	c.env.Trace("dsr", fn)
}

// tsrSpansTagDOM reports whether the TSR of n covers its whole subtree.
func (c *computer) tsrSpansTagDOM(n dom.NodeID, dp *dom.DataParsoid) bool {
	return !(wikitext.HasLimitedTSR(c.doc.NodeName(n)) ||
		wtutils.IsPlaceholderOrLanguageVariant(c.doc, n) ||
		wtutils.HasLiteralHTMLMarker(dp))
}

// acceptableInconsistency reports whether a start offset mismatch on n has
// a known benign cause. URL and magic link text is canonicalized, so its
// width need not match the source. Attribute expansions carry no offsets
// for the attribute itself.
func (c *computer) acceptableInconsistency(n dom.NodeID) bool {
	if wtutils.IsATagFromURLLinkSyntax(c.doc, n) || wtutils.IsATagFromMagicLinkSyntax(c.doc, n) {
		return true
	}
	return c.attrExpansion && wtutils.AtTheTop(c.doc, n)
}

// computeNodeDSR assigns DSRs to the children of node, which spans [s, e)
// when those are known, and returns the start it infers for node along with
// a possibly updated end.
func (c *computer) computeNodeDSR(node dom.NodeID, s, e dom.Offset, dsrCorrection int) (dom.Offset, dom.Offset) {
	doc := c.doc
	if !e.Valid && !doc.HasChildNodes(node) {
		e = s
	}
	c.trace(func() string {
		return fmt.Sprintf("BEG: %s with [s, e]=[%s, %s]", doc.NodeName(node), s, e)
	})

	ce := e
	cs := ce

	for child := doc.LastChild(node); child != dom.None; {
		prevChild := doc.PreviousSibling(child)
		origCE := ce
		fostered := false
		cs = dom.Offset{}

		var dp *dom.DataParsoid
		var endTSR *dom.SourceRange
		if doc.IsElement(child) {
			dp = doc.DataParsoid(child)
			if endTSR = dp.EndTSR(); endTSR != nil {
				ce = dom.Known(endTSR.End)
			}
		}

		// Stripped tag placeholders are removed later and won't be around
		// to fill their gap, so the preceding quote sibling absorbs their
		// width.
		if next := doc.NextSibling(child); doc.IsElement(next) {
			ndp := doc.DataParsoid(next)
			if ndp.Src != "" && doc.HasTypeOf(next, "mw:Placeholder/StrippedTag") &&
				!wtutils.IsNestedInListItem(doc, next) &&
				wikitext.IsQuoteTag(ndp.Name) && wikitext.IsQuoteTag(doc.NodeName(child)) {
				correction := len(ndp.Src)
				ce = ce.Add(correction)
				dsrCorrection = correction
				if ndp.DSR.IsValid() {
					ndp.Temp().OrigDSR = &dom.DomSourceRange{Start: ndp.DSR.Start, End: ndp.DSR.End}
				}
			}
		}

		c.trace(func() string {
			return fmt.Sprintf("     CHILD: <%s>=%s with [%s, %s]",
				doc.NodeName(node), c.describe(child), cs, ce)
		})

		switch {
		case doc.IsText(child):
			if ce.Valid {
				cs = dom.Known(ce.N - len(doc.Data(child)))
			}

		case doc.IsComment(child):
			if ce.Valid {
				cs = dom.Known(ce.N - wikitext.DecodedCommentLength(doc.Data(child)))
			}

		case doc.IsElement(child):
			tsr := dp.TSR
			var oldCE dom.Offset
			if tsr != nil {
				oldCE = dom.Known(tsr.End)
			}
			propagateRight := false
			var st, et dom.Offset
			fostered = dp.Fostered

			// An auto-inserted quote end tag undoes a matching stripped-tag
			// correction once.
			if ce.Valid && dp.AutoInsertedEnd && wtutils.IsQuoteElt(doc, child) {
				correction := 3 + len(doc.NodeName(child))
				if correction == dsrCorrection {
					ce = ce.Add(-correction)
					dsrCorrection = 0
				}
			}

			switch {
			case doc.NodeName(child) == "meta":
				switch {
				case tsr != nil:
					// Marker metas reset the cursor back to top-level
					// offsets from nested template offsets.
					cs, ce = dom.Known(tsr.Start), dom.Known(tsr.End)
					propagateRight = wtutils.IsTplMarkerMeta(doc, child)
				case wtutils.IsIndentPreWS(doc, child):
					cs = ce.Add(-1)
				case wtutils.IsPlaceholder(doc, child) && ce.Valid && dp.Src != "":
					cs = dom.Known(ce.N - len(dp.Src))
				}
				if dp.ExtTagOffsets != nil {
					st, et = dp.ExtTagOffsets.OpenWidth, dp.ExtTagOffsets.CloseWidth
					dp.ExtTagOffsets = nil
				}

			case doc.HasTypeOf(child, "mw:Entity") && ce.Valid && dp.Src != "":
				cs = dom.Known(ce.N - len(dp.Src))

			case wtutils.IsPlaceholder(doc, child) && ce.Valid && dp.Src != "":
				cs = dom.Known(ce.N - len(dp.Src))

			default:
				if endTSR != nil {
					et = dom.Known(endTSR.Length())
				}
				if tsr != nil && !dp.AutoInsertedStart {
					cs = dom.Known(tsr.Start)
					if c.tsrSpansTagDOM(child, dp) {
						if tsr.End > 0 {
							ce = dom.Known(tsr.End)
							propagateRight = true
						}
					} else {
						st = dom.Known(tsr.End - tsr.Start)
					}
					c.trace(func() string {
						return fmt.Sprintf("     TSR: [%d, %d]; cs: %s; ce: %s", tsr.Start, tsr.End, cs, ce)
					})
				} else if s.Valid && s.N != 0 && doc.PreviousSibling(child) == dom.None {
					cs = s
				}

				st, et = c.computeTagWidths(st, et, child, dp)
				if dp.AutoInsertedStart {
					st = dom.Known(0)
				}
				if dp.AutoInsertedEnd {
					et = dom.Known(0)
				}

				var ccs, cce dom.Offset
				if cs.Valid && st.Valid {
					ccs = dom.Known(cs.N + st.N)
				}
				if ce.Valid && et.Valid {
					cce = dom.Known(ce.N - et.N)
				}

				var newStart, newEnd dom.Offset
				if wtutils.IsDOMFragmentWrapper(doc, child) ||
					doc.HasTypeOf(child, "mw:LanguageVariant") ||
					(wtutils.IsATagFromWikiLinkSyntax(doc, child) && dp.Stx != "piped") {
					// The wrapper's own offsets are authoritative. Descending
					// into non-piped link text would only report mismatches
					// caused by entity decoding of the title.
					newStart, newEnd = ccs, cce
				} else {
					c.trace(func() string {
						return fmt.Sprintf("     before-recursing: [cs,ce]=[%s, %s]; [sw,ew]=[%s, %s]; subtree-[cs,ce]=[%s, %s]",
							cs, ce, st, et, ccs, cce)
					})
					newStart, newEnd = c.computeNodeDSR(child, ccs, cce, dsrCorrection)
				}

				if st.Valid && newStart.Valid {
					newCs := newStart.N - st.N
					if !cs.Valid || (tsr == nil && newCs < cs.N) {
						cs = dom.Known(newCs)
					}
				}
				if et.Valid && newEnd.Valid {
					newCe := newEnd.N + et.N
					if !ce.Valid || newCe > ce.N {
						ce = dom.Known(newCe)
					}
				}
			}

			if cs.Valid || ce.Valid {
				if ce.Valid && ce.N < 0 {
					if !fostered {
						c.env.Info("info/dsr/negative",
							"Negative DSR for node: "+doc.NodeName(node)+"; resetting to zero")
					}
					ce = dom.Known(0)
				}

				if fostered {
					// Fostered content has no source of its own.
					pos := origCE
					if pos.Valid && pos.N < 0 {
						pos = dom.Known(0)
					}
					dp.DSR = &dom.DomSourceRange{Start: pos, End: pos}
				} else {
					dp.DSR = &dom.DomSourceRange{Start: cs, End: ce, OpenWidth: st, CloseWidth: et}
				}
				c.trace(func() string {
					return fmt.Sprintf("     UPDATING %s with [%s, %s]; typeof: %s",
						doc.NodeName(child), cs, ce, doc.GetAttribute(child, "typeof"))
				})
			}

			if ce.Valid && (propagateRight || oldCE != ce || !e.Valid) &&
				!wtutils.IsTplStartMarkerMeta(doc, child) {
				if sibling, newCE := c.propagateRight(child, ce); sibling == dom.None {
					e = newCE
				}
			}
		}

		if fostered {
			ce = origCE
		} else {
			ce = cs
		}
		child = prevChild
	}

	if !cs.Valid {
		cs = s
	}

	if s.Valid && cs != s && !c.acceptableInconsistency(node) {
		c.env.Info("info/dsr/inconsistent", "DSR inconsistency: cs/s mismatch",
			"node", doc.NodeName(node), "s", s.String(), "cs", cs.String())
	}

	c.trace(func() string {
		return fmt.Sprintf("END: %s, returning: %s, %s", doc.NodeName(node), cs, e)
	})
	return cs, e
}

// propagateRight pushes the end offset ce of child onto the following
// siblings, stopping at template content and at siblings whose start is
// already settled. It returns the sibling the walk stopped at (None when it
// ran off the end) and the last end offset reached.
func (c *computer) propagateRight(child dom.NodeID, ce dom.Offset) (dom.NodeID, dom.Offset) {
	doc := c.doc
	newCE := ce
	sibling := doc.NextSibling(child)

walk:
	for newCE.Valid && sibling != dom.None && !wtutils.IsTplStartMarkerMeta(doc, sibling) {
		switch {
		case doc.IsText(sibling):
			newCE = newCE.Add(len(doc.Data(sibling)))
		case doc.IsComment(sibling):
			newCE = newCE.Add(wikitext.DecodedCommentLength(doc.Data(sibling)))
		case doc.IsElement(sibling):
			sdp := doc.DataParsoid(sibling)
			if sdp.DSR == nil {
				sdp.DSR = &dom.DomSourceRange{}
			}
			start := sdp.DSR.Start
			if sdp.Fostered ||
				(start.Valid && start.N == newCE.N) ||
				(start.Valid && start.N < newCE.N && sdp.TSR != nil) {
				break walk
			}

			c.trace(func() string {
				return fmt.Sprintf("     CHANGING ce.start of %s from %s to %s",
					doc.NodeName(sibling), sdp.DSR.Start, newCE)
			})
			sdp.DSR.Start = newCE
			// Keep start <= end; this pass pushes updates forward, so the end
			// moves along.
			if sdp.DSR.End.Valid && newCE.N > sdp.DSR.End.N {
				sdp.DSR.End = newCE
			}
			newCE = sdp.DSR.End
		default:
			break walk
		}
		sibling = doc.NextSibling(sibling)
	}
	return sibling, newCE
}

func (c *computer) describe(n dom.NodeID) string {
	doc := c.doc
	switch {
	case doc.IsText(n):
		return fmt.Sprintf("#%q", doc.Data(n))
	case doc.IsComment(n):
		return fmt.Sprintf("!%q", doc.Data(n))
	case doc.IsElementNamed(n, "meta"):
		return "meta[" + doc.GetAttribute(n, "typeof") + "]"
	}
	return doc.NodeName(n)
}
