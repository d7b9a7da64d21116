package dom

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DataParsoid is the private per-element bookkeeping carried in the
// data-parsoid attribute.
type DataParsoid struct {
	DSR *DomSourceRange `json:"dsr,omitempty"`
	TSR *SourceRange    `json:"tsr,omitempty"`
	Src string          `json:"src,omitempty"`
	Stx string          `json:"stx,omitempty"`
	// Name is set on stripped-tag placeholders to the tag that was dropped.
	Name string `json:"name,omitempty"`

	Fostered          bool `json:"fostered,omitempty"`
	AutoInsertedStart bool `json:"autoInsertedStart,omitempty"`
	AutoInsertedEnd   bool `json:"autoInsertedEnd,omitempty"`
	SelfClose         bool `json:"selfClose,omitempty"`
	WasMoved          bool `json:"wasMoved,omitempty"`

	// SA holds the source (pre-expansion) values of attributes.
	SA            map[string]string `json:"sa,omitempty"`
	StartTagSrc   string            `json:"startTagSrc,omitempty"`
	ExtTagOffsets *DomSourceRange   `json:"extTagOffsets,omitempty"`

	FirstWikitextNode string        `json:"firstWikitextNode,omitempty"`
	UnwrappedWT       string        `json:"unwrappedWT,omitempty"`
	PI                [][]ParamInfo `json:"pi,omitempty"`

	// Tmp is pipeline-internal state; it is read from input but never
	// rendered.
	Tmp *TempData `json:"tmp,omitempty"`

	// Extra preserves keys this package does not interpret.
	Extra map[string]json.RawMessage `json:"-"`
}

// TempData is transient state attached to an element while the pipeline
// runs.
type TempData struct {
	EndTSR                *SourceRange    `json:"endTSR,omitempty"`
	OrigDSR               *DomSourceRange `json:"origDSR,omitempty"`
	TplArgInfo            *TemplateInfo   `json:"tplarginfo,omitempty"`
	ExtLinkContentOffsets *SourceRange    `json:"extLinkContentOffsets,omitempty"`
	FromFoster            bool            `json:"fromFoster,omitempty"`
	Wrapper               bool            `json:"wrapper,omitempty"`
	TagID                 int             `json:"tagId,omitempty"`
}

// Temp returns the temp data of dp, creating it when missing.
func (dp *DataParsoid) Temp() *TempData {
	if dp.Tmp == nil {
		dp.Tmp = &TempData{}
	}
	return dp.Tmp
}

// EndTSR returns the end-tag source range, if known.
func (dp *DataParsoid) EndTSR() *SourceRange {
	if dp.Tmp == nil {
		return nil
	}
	return dp.Tmp.EndTSR
}

type dataParsoidAlias DataParsoid

// MarshalJSON encodes known fields and re-emits preserved unknown keys.
func (dp DataParsoid) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(dataParsoidAlias(dp))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, dp.Extra)
}

// UnmarshalJSON decodes known fields and keeps the rest in Extra.
func (dp *DataParsoid) UnmarshalJSON(data []byte) error {
	var a dataParsoidAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("data-parsoid: %w", err)
	}
	extra, err := extractExtra(data, dataParsoidKeys)
	if err != nil {
		return fmt.Errorf("data-parsoid: %w", err)
	}
	*dp = DataParsoid(a)
	dp.Extra = extra
	return nil
}

var dataParsoidKeys = map[string]bool{
	"dsr": true, "tsr": true, "src": true, "stx": true, "name": true,
	"fostered": true, "autoInsertedStart": true, "autoInsertedEnd": true,
	"selfClose": true, "wasMoved": true, "sa": true, "startTagSrc": true,
	"extTagOffsets": true, "firstWikitextNode": true, "unwrappedWT": true,
	"pi": true, "tmp": true,
}

// DataMw is the public generation metadata carried in the data-mw attribute.
type DataMw struct {
	Parts []Part `json:"parts,omitempty"`
	// RangeID links an annotation start marker to its end marker.
	RangeID       string       `json:"rangeId,omitempty"`
	ExtendedRange *bool        `json:"extendedRange,omitempty"`
	WtOffsets     *SourceRange `json:"wtOffsets,omitempty"`
	Name          string       `json:"name,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type dataMwAlias DataMw

// MarshalJSON encodes known fields and re-emits preserved unknown keys.
func (mw DataMw) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(dataMwAlias(mw))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, mw.Extra)
}

// UnmarshalJSON decodes known fields and keeps the rest in Extra.
func (mw *DataMw) UnmarshalJSON(data []byte) error {
	var a dataMwAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("data-mw: %w", err)
	}
	extra, err := extractExtra(data, dataMwKeys)
	if err != nil {
		return fmt.Errorf("data-mw: %w", err)
	}
	*mw = DataMw(a)
	mw.Extra = extra
	return nil
}

var dataMwKeys = map[string]bool{
	"parts": true, "rangeId": true, "extendedRange": true, "wtOffsets": true, "name": true,
}

// IsEmpty reports whether mw carries nothing worth rendering.
func (mw *DataMw) IsEmpty() bool {
	return mw == nil || (len(mw.Parts) == 0 && mw.RangeID == "" &&
		mw.ExtendedRange == nil && mw.WtOffsets == nil && mw.Name == "" && len(mw.Extra) == 0)
}

// Part is one entry of data-mw parts: either a literal wikitext string or a
// transclusion record.
type Part struct {
	Wikitext string
	Info     *TemplateInfo
}

// MarshalJSON encodes a literal as a JSON string and a record as
// {"<type>": {...}}.
func (p Part) MarshalJSON() ([]byte, error) {
	if p.Info == nil {
		return json.Marshal(p.Wikitext)
	}
	typ := p.Info.Type
	if typ == "" {
		typ = "template"
	}
	return json.Marshal(map[string]*TemplateInfo{typ: p.Info})
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (p *Part) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Part{Wikitext: s}
		return nil
	}
	var m map[string]*TemplateInfo
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("part: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("part: expected exactly one key, got %d", len(m))
	}
	for typ, info := range m {
		if info == nil {
			return fmt.Errorf("part: empty %s record", typ)
		}
		info.Type = typ
		*p = Part{Info: info}
	}
	return nil
}

// Target names what a transclusion invoked.
type Target struct {
	Wt       string `json:"wt"`
	Href     string `json:"href,omitempty"`
	Function string `json:"function,omitempty"`
}

// TemplateInfo describes one template, template argument or parser
// function invocation.
type TemplateInfo struct {
	Target     Target          `json:"target"`
	Params     json.RawMessage `json:"params,omitempty"`
	ParamInfos []ParamInfo     `json:"paramInfos,omitempty"`
	I          int             `json:"i"`
	// Type is template, templatearg or parserfunction. It is the key of the
	// part rather than a field of the record.
	Type string `json:"-"`
}

// Func returns the parser function name, or "" for templates.
func (ti *TemplateInfo) Func() string {
	return ti.Target.Function
}

type templateInfoPublic struct {
	Target Target          `json:"target"`
	Params json.RawMessage `json:"params"`
	I      int             `json:"i"`
}

// MarshalJSON emits the public form used inside data-mw parts. Param infos
// are carried separately in data-parsoid.
func (ti TemplateInfo) MarshalJSON() ([]byte, error) {
	params := ti.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	return json.Marshal(templateInfoPublic{Target: ti.Target, Params: params, I: ti.I})
}

// ParamInfo records per-argument formatting of a transclusion.
type ParamInfo struct {
	K          string          `json:"k"`
	Named      bool            `json:"named,omitempty"`
	Spc        []string        `json:"spc,omitempty"`
	SrcOffsets json.RawMessage `json:"srcOffsets,omitempty"`
}

// DataParsoid returns the data-parsoid record of element n, creating an
// empty one if needed. It returns nil for non-elements.
func (d *Document) DataParsoid(n NodeID) *DataParsoid {
	if !d.IsElement(n) {
		return nil
	}
	e := d.at(n)
	if e.dp == nil {
		e.dp = &DataParsoid{}
	}
	return e.dp
}

// HasDataParsoid reports whether element n carries a data-parsoid record.
func (d *Document) HasDataParsoid(n NodeID) bool {
	return d.IsElement(n) && d.at(n).dp != nil
}

// SetDataParsoid replaces the data-parsoid record of element n.
func (d *Document) SetDataParsoid(n NodeID, dp *DataParsoid) {
	if d.IsElement(n) {
		d.at(n).dp = dp
	}
}

// DataMw returns the data-mw record of element n, creating an empty one if
// needed. It returns nil for non-elements.
func (d *Document) DataMw(n NodeID) *DataMw {
	if !d.IsElement(n) {
		return nil
	}
	e := d.at(n)
	if e.mw == nil {
		e.mw = &DataMw{}
	}
	return e.mw
}

// HasDataMw reports whether element n carries a non-empty data-mw record.
func (d *Document) HasDataMw(n NodeID) bool {
	return d.IsElement(n) && !d.at(n).mw.IsEmpty()
}

// SetDataMw replaces the data-mw record of element n.
func (d *Document) SetDataMw(n NodeID, mw *DataMw) {
	if d.IsElement(n) {
		d.at(n).mw = mw
	}
}

func extractExtra(data []byte, known map[string]bool) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	for k, v := range all {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra, nil
}

// mergeExtra appends the extra keys, sorted, to an encoded JSON object.
func mergeExtra(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0, len(known)+64)
	out = append(out, known[:len(known)-1]...)
	first := len(known) == 2
	for _, k := range keys {
		if !first {
			out = append(out, ',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		out = append(out, extra[k]...)
	}
	return append(out, '}'), nil
}
