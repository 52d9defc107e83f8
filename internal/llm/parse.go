package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raine/mural-table-bot/internal/mural"
)

// StripCodeFence removes a leading ```json or ``` fence, a trailing ```
// fence and surrounding whitespace.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "```"); ok {
		// Drop the info string, e.g. "json".
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			info := strings.TrimSpace(rest[:nl])
			if info == "" || !strings.ContainsAny(info, "[{") {
				rest = rest[nl+1:]
			}
		} else {
			rest = strings.TrimPrefix(rest, "json")
		}
		text = strings.TrimSpace(rest)
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseRecords parses the model's cleaned response text. The text must be a
// JSON array; elements that are not usable objects are reported as
// rejections without failing the whole response.
func ParseRecords(text string) ([]mural.Record, []Rejection, error) {
	text = StripCodeFence(text)
	if text == "" {
		return nil, nil, ErrEmptyResponse
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	// Unmarshal accepts null into a slice.
	if elems == nil && strings.TrimSpace(text) != "[]" {
		return nil, nil, fmt.Errorf("%w: not a JSON array", ErrMalformedResponse)
	}

	records := make([]mural.Record, 0, len(elems))
	var rejected []Rejection
	for i, raw := range elems {
		rec, err := mural.DecodeRecord(raw)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rejected, nil
}
