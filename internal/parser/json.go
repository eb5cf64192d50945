package parser

import (
	"fmt"
	"strconv"

	"github.com/valyala/fastjson"

	"github.com/kilnhq/kiln/internal/model"
)

// ---------------------------------------------------------------------------
// JSON Parser
// ---------------------------------------------------------------------------

// JSONParser handles JSON uploads: a top-level array of objects, one object
// per record. Unknown fields never fail parsing; they are kept as free-form
// strings.
type JSONParser struct {
	pool fastjson.ParserPool
}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) Parse(data []byte, source string) (*model.Table, error) {
	fp := p.pool.Get()
	defer p.pool.Put(fp)

	v, err := fp.ParseBytes(data)
	if err != nil {
		return nil, &ParseError{Format: FormatJSON, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if v.Type() != fastjson.TypeArray {
		return nil, &ParseError{Format: FormatJSON, Reason: "expected a top-level array of objects"}
	}
	items, _ := v.Array()
	if len(items) == 0 {
		return nil, &ParseError{Format: FormatJSON, Reason: "no records"}
	}

	records := make([]model.Record, 0, len(items))
	for i, item := range items {
		rec, perr := jsonRecord(item, i+1)
		if perr != nil {
			return nil, perr
		}
		rec.Seq = i
		records = append(records, rec)
	}
	return newTable(source, FormatJSON, records), nil
}

// jsonRecord maps one array element to a Record. pos is 1-based.
func jsonRecord(item *fastjson.Value, pos int) (model.Record, *ParseError) {
	obj, err := item.Object()
	if err != nil {
		return model.Record{}, &ParseError{
			Format: FormatJSON,
			Reason: fmt.Sprintf("element %d is not an object", pos),
			Line:   pos,
		}
	}

	var rec model.Record

	rec.Model = string(item.GetStringBytes("model"))
	if rec.Model == "" {
		return rec, &ParseError{Format: FormatJSON, Reason: fmt.Sprintf("element %d: missing model", pos), Line: pos}
	}
	rec.Category = string(item.GetStringBytes("category"))
	if rec.Category == "" {
		return rec, &ParseError{Format: FormatJSON, Reason: fmt.Sprintf("element %d: missing category", pos), Line: pos}
	}

	success, present := jsonSuccess(item.Get("success"))
	if !present {
		return rec, &ParseError{Format: FormatJSON, Reason: fmt.Sprintf("element %d: missing success", pos), Line: pos}
	}
	rec.Success = success

	rec.Language = string(item.GetStringBytes("language"))
	if tv := item.Get("temperature"); tv != nil {
		switch tv.Type() {
		case fastjson.TypeNumber:
			if f, err := tv.Float64(); err == nil {
				rec.Temperature = &f
			}
		case fastjson.TypeString:
			if f, err := strconv.ParseFloat(string(tv.GetStringBytes()), 64); err == nil {
				rec.Temperature = &f
			}
		}
	}

	obj.Visit(func(key []byte, v *fastjson.Value) {
		switch string(key) {
		case "model", "category", "success", "language", "temperature":
			return
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[string(key)] = scalarString(v)
	})

	return rec, nil
}

// jsonSuccess accepts booleans, numbers (nonzero is true) and truthy
// strings for the success field.
func jsonSuccess(v *fastjson.Value) (value bool, present bool) {
	if v == nil {
		return false, false
	}
	switch v.Type() {
	case fastjson.TypeTrue:
		return true, true
	case fastjson.TypeFalse:
		return false, true
	case fastjson.TypeNumber:
		f, err := v.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	case fastjson.TypeString:
		return parseSuccess(string(v.GetStringBytes()))
	}
	return false, false
}

// scalarString renders a JSON value as a plain string; strings lose their
// quotes, everything else keeps its JSON form.
func scalarString(v *fastjson.Value) string {
	if sb := v.GetStringBytes(); sb != nil {
		return string(sb)
	}
	return v.String()
}
