package mural

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotObject   = errors.New("element is not a JSON object")
	ErrEmptyObject = errors.New("object has no fields")
)

// keyAliases maps the field names seen across prompt variants to columns.
// Keys are compared after normalizeKey.
var keyAliases = map[string][]string{
	ColumnName:     {"proje", "proje_adi", "project", "project_name", "name", "title", "baslik"},
	ColumnDate:     {"tarih", "date", "deadline", "son_tarih", "due_date", "son_basvuru"},
	ColumnBudget:   {"butce", "budget", "price", "fiyat", "ucret", "odeme"},
	ColumnLocation: {"konum", "location", "state", "sehir", "city", "yer"},
	ColumnLink:     {"link", "url", "basvuru_linki", "website", "web"},
	ColumnNotes:    {"notlar", "notes", "not", "wall_desc", "description", "aciklama", "detay"},
	ColumnStatus:   {"durum", "status"},
}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]string {
	idx := make(map[string]string)
	for col, aliases := range keyAliases {
		for _, a := range aliases {
			idx[normalizeKey(a)] = col
		}
	}
	return idx
}

var dotlessReplacer = strings.NewReplacer("ı", "i", "İ", "i")

// normalizeKey folds case and strips diacritics so "Bütçe", "butce" and
// "BÜTÇE" compare equal. Separators collapse to a single underscore.
func normalizeKey(s string) string {
	s = dotlessReplacer.Replace(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = cases.Fold().String(s)

	var b strings.Builder
	sep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}

func columnForKey(key string) (string, bool) {
	col, ok := aliasIndex[normalizeKey(key)]
	return col, ok
}

// pair is one key/value of a JSON object in source order.
type pair struct {
	key   string
	value any
}

// decodeObject decodes a JSON object keeping key order.
func decodeObject(raw json.RawMessage) ([]pair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var pairs []pair
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if i, dup := index[key]; dup {
			pairs[i].value = v
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, pair{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// valueText renders a decoded JSON value as text. Nested values are
// returned as compact JSON with nested set.
func valueText(v any) (text string, nested bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), false
	case json.Number:
		return t.String(), false
	case bool:
		return strconv.FormatBool(t), false
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t), true
		}
		return string(b), true
	}
}

// DecodeRecord coerces one element of the model's JSON array into a Record.
// Unknown keys are kept as extra fields and flagged; a non-object element or
// an object without keys is rejected.
func DecodeRecord(raw json.RawMessage) (Record, error) {
	pairs, err := decodeObject(raw)
	if err != nil {
		return Record{}, err
	}
	if len(pairs) == 0 {
		return Record{}, ErrEmptyObject
	}

	var rec Record
	for _, p := range pairs {
		rec.Keys = append(rec.Keys, p.key)

		text, nested := valueText(p.value)
		if nested {
			rec.warnf("%s: nested value kept as text", p.key)
		}

		col, known := columnForKey(p.key)
		if known && rec.Get(col) != "" {
			rec.warnf("%s: duplicate of %s", p.key, col)
			rec.Extra = append(rec.Extra, ExtraField{Key: p.key, Value: text})
			continue
		}
		if !known {
			rec.warnf("%s: unknown field", p.key)
			rec.Extra = append(rec.Extra, ExtraField{Key: p.key, Value: text})
			continue
		}

		switch col {
		case ColumnDate:
			rec.DateText = text
			if text != "" {
				if d, err := ParseDate(text); err == nil {
					rec.Date = &d
				} else {
					rec.warnf("%s: unrecognized date %q", p.key, text)
				}
			}
		case ColumnStatus:
			s, err := ParseStatus(text)
			if err != nil {
				rec.warnf("%s: %v", p.key, err)
				continue
			}
			rec.Status = s
		case ColumnLink:
			rec.Link = text
			if text != "" && !IsURL(text) {
				rec.warnf("%s: not a URL", p.key)
			}
		default:
			// Set never fails for plain text columns.
			_ = rec.Set(col, text)
		}
	}
	return rec, nil
}

// ResolveColumn maps a user-typed field name such as "tarih" or "Bütçe" to
// its canonical column.
func ResolveColumn(name string) (string, bool) {
	return columnForKey(name)
}
