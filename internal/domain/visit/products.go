package visit

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ProductLine is one product discussed or ordered during a visit.
type ProductLine struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Notes    *string  `json:"notes"`
}

// UnmarshalJSON tolerates the loose shapes the field app has sent over time:
// quantities as numbers or numeric strings, and fields of unexpected types.
func (p *ProductLine) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = ProductLine{}
	if v, ok := raw["name"]; ok {
		p.Name = looseText(v)
	}
	if v, ok := raw["quantity"]; ok {
		p.Quantity = looseNumber(v)
	}
	if v, ok := raw["unit"]; ok {
		p.Unit = looseString(v)
	}
	if v, ok := raw["notes"]; ok {
		p.Notes = looseString(v)
	}
	return nil
}

// Key identifies a product across visits regardless of spelling case.
func (p ProductLine) Key() string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

// ParseProducts decodes a stored product list. Missing, malformed or
// non-array input yields nil. Elements that are not objects are skipped so
// one stray legacy entry does not hide the rest of the list.
func ParseProducts(raw *string) []ProductLine {
	if raw == nil {
		return nil
	}
	data := bytes.TrimSpace([]byte(*raw))
	if len(data) == 0 || data[0] != '[' {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}

	lines := make([]ProductLine, 0, len(elems))
	for _, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var line ProductLine
		if err := json.Unmarshal(elem, &line); err != nil {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// EncodeProducts serializes a product list for storage. A nil list stays nil.
func EncodeProducts(lines []ProductLine) (*string, error) {
	if lines == nil {
		return nil, nil
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func looseNumber(raw json.RawMessage) *float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return &f
		}
	}
	return nil
}

// looseText renders scalars as text: strings as-is, numbers and booleans by
// their literal. Anything else is "".
func looseText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch v.(type) {
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	}
	return ""
}

func looseString(raw json.RawMessage) *string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	return nil
}
