package dom

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Offset is a byte offset (or width) into the wikitext source that may be
// unknown. The zero value is unknown.
type Offset struct {
	N     int
	Valid bool
}

// Known returns a known offset.
func Known(n int) Offset {
	return Offset{N: n, Valid: true}
}

// Add shifts a known offset by delta. Unknown offsets stay unknown.
func (o Offset) Add(delta int) Offset {
	if !o.Valid {
		return o
	}
	return Known(o.N + delta)
}

func (o Offset) String() string {
	if !o.Valid {
		return "null"
	}
	return strconv.Itoa(o.N)
}

// MarshalJSON encodes unknown offsets as null.
func (o Offset) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.N)), nil
}

// UnmarshalJSON accepts an integer or null.
func (o *Offset) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Offset{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("offset: %w", err)
	}
	*o = Known(n)
	return nil
}

// SourceRange is a half-open [Start, End) span of the wikitext source, as
// assigned by the tokenizer to a single tag (TSR).
type SourceRange struct {
	Start int
	End   int
}

// Length returns the width of the range.
func (r SourceRange) Length() int {
	return r.End - r.Start
}

// Substr returns the part of src covered by the range, clamped to src.
func (r SourceRange) Substr(src string) string {
	return safeSubstr(src, r.Start, r.Length())
}

// MarshalJSON encodes the range as [start, end].
func (r SourceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes a [start, end] array.
func (r *SourceRange) UnmarshalJSON(data []byte) error {
	var a []int
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("source range: %w", err)
	}
	if len(a) != 2 {
		return fmt.Errorf("source range: expected 2 elements, got %d", len(a))
	}
	r.Start, r.End = a[0], a[1]
	return nil
}

// DomSourceRange is the span of wikitext a DOM subtree corresponds to, along
// with the widths of the wikitext markup of its opening and closing tags.
type DomSourceRange struct {
	Start      Offset
	End        Offset
	OpenWidth  Offset
	CloseWidth Offset
	// Source is the literal wikitext of the range when it has to be replayed
	// verbatim; it is not part of the JSON array form.
	Source string
}

// NewDomSourceRange returns a range with all four fields known.
func NewDomSourceRange(start, end, openWidth, closeWidth int) *DomSourceRange {
	return &DomSourceRange{
		Start:      Known(start),
		End:        Known(end),
		OpenWidth:  Known(openWidth),
		CloseWidth: Known(closeWidth),
	}
}

// FromTSR returns a range with the tag source range as its bounds and
// unknown tag widths.
func FromTSR(tsr SourceRange) *DomSourceRange {
	return &DomSourceRange{Start: Known(tsr.Start), End: Known(tsr.End)}
}

// Clone returns a copy of r; nil stays nil.
func (r *DomSourceRange) Clone() *DomSourceRange {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// IsValid reports whether the start and end offsets are known and
// non-negative.
func (r *DomSourceRange) IsValid() bool {
	return r != nil &&
		r.Start.Valid && r.Start.N >= 0 &&
		r.End.Valid && r.End.N >= 0
}

// IsFullyValid additionally requires both tag widths to be known and
// non-negative.
func (r *DomSourceRange) IsFullyValid() bool {
	return r.IsValid() && r.HasValidTagWidths()
}

// HasValidTagWidths reports whether both tag widths are known and non-negative.
func (r *DomSourceRange) HasValidTagWidths() bool {
	return r != nil &&
		r.OpenWidth.Valid && r.OpenWidth.N >= 0 &&
		r.CloseWidth.Valid && r.CloseWidth.N >= 0
}

// Length returns End - Start.
func (r *DomSourceRange) Length() int {
	return r.End.N - r.Start.N
}

// InnerStart returns the offset just past the opening tag.
func (r *DomSourceRange) InnerStart() int {
	return r.Start.N + r.OpenWidth.N
}

// InnerEnd returns the offset of the closing tag.
func (r *DomSourceRange) InnerEnd() int {
	return r.End.N - r.CloseWidth.N
}

// InnerLength returns the width of the content between the tags.
func (r *DomSourceRange) InnerLength() int {
	return r.InnerEnd() - r.InnerStart()
}

// Substr returns the wikitext covered by the range.
func (r *DomSourceRange) Substr(src string) string {
	return safeSubstr(src, r.Start.N, r.Length())
}

// InnerSubstr returns the wikitext between the tags.
func (r *DomSourceRange) InnerSubstr(src string) string {
	return safeSubstr(src, r.InnerStart(), r.InnerLength())
}

// OpenSubstr returns the wikitext of the opening tag.
func (r *DomSourceRange) OpenSubstr(src string) string {
	return safeSubstr(src, r.Start.N, r.OpenWidth.N)
}

// CloseSubstr returns the wikitext of the closing tag.
func (r *DomSourceRange) CloseSubstr(src string) string {
	return safeSubstr(src, r.InnerEnd(), r.CloseWidth.N)
}

// OpenRange returns the source range of the opening tag.
func (r *DomSourceRange) OpenRange() SourceRange {
	return SourceRange{Start: r.Start.N, End: r.InnerStart()}
}

// CloseRange returns the source range of the closing tag.
func (r *DomSourceRange) CloseRange() SourceRange {
	return SourceRange{Start: r.InnerEnd(), End: r.End.N}
}

// InnerRange returns the source range between the tags.
func (r *DomSourceRange) InnerRange() SourceRange {
	return SourceRange{Start: r.InnerStart(), End: r.InnerEnd()}
}

// Shift returns a copy of r moved by amount.
func (r *DomSourceRange) Shift(amount int) *DomSourceRange {
	c := r.Clone()
	c.Start = c.Start.Add(amount)
	c.End = c.End.Add(amount)
	return c
}

func (r *DomSourceRange) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("[%s,%s,%s,%s]", r.Start, r.End, r.OpenWidth, r.CloseWidth)
}

// MarshalJSON encodes the range as [start, end, openWidth, closeWidth].
func (r DomSourceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]Offset{r.Start, r.End, r.OpenWidth, r.CloseWidth})
}

// UnmarshalJSON decodes a 2- or 4-element array.
func (r *DomSourceRange) UnmarshalJSON(data []byte) error {
	var a []Offset
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("dom source range: %w", err)
	}
	if len(a) != 2 && len(a) != 4 {
		return fmt.Errorf("dom source range: expected 2 or 4 elements, got %d", len(a))
	}
	*r = DomSourceRange{Start: a[0], End: a[1]}
	if len(a) == 4 {
		r.OpenWidth, r.CloseWidth = a[2], a[3]
	}
	return nil
}

// safeSubstr returns up to length bytes of s starting at start, clamping both
// to the bounds of s.
func safeSubstr(s string, start, length int) string {
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		return ""
	}
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	if end < start {
		return ""
	}
	return s[start:end]
}

// Substr is the clamped substring helper used for gap reconstruction.
func Substr(s string, start, length int) string {
	return safeSubstr(s, start, length)
}
