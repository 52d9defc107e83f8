package mural

import (
	"bytes"
	"encoding/json"
	"slices"
)

// MarshalJSON encodes the record as a flat JSON object. Keys from the source
// object come first in their original order, followed by columns that were
// set later. Decoding the output with DecodeRecord yields the same values.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key, value string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	covered := make(map[string]bool)
	for _, key := range r.Keys {
		if i := slices.IndexFunc(r.Extra, func(e ExtraField) bool { return e.Key == key }); i >= 0 {
			covered[key] = true
			if err := write(key, r.Extra[i].Value); err != nil {
				return nil, err
			}
			continue
		}
		col, ok := columnForKey(key)
		if !ok || covered[col] {
			continue
		}
		covered[col] = true
		if err := write(key, r.rawValue(col)); err != nil {
			return nil, err
		}
	}
	for _, col := range canonicalColumns {
		if !covered[col] && r.Get(col) != "" {
			if err := write(col, r.rawValue(col)); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range r.Extra {
		if !covered[e.Key] {
			if err := write(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// rawValue is Get with the date as originally written.
func (r Record) rawValue(column string) string {
	if column == ColumnDate && r.DateText != "" {
		return r.DateText
	}
	return r.Get(column)
}
