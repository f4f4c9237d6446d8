package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// ResultVersion is the current normalized answer map schema.
	ResultVersion = 1

	versionKey = "_version"
	metaKey    = "_meta"

	// legacyLiteThreshold is the answer count below which a record stored
	// without a _meta block is treated as a lite submission.
	legacyLiteThreshold = 30
)

// ResultData is a normalized answer map. On the wire the metadata keys sit
// next to the question ids:
//
//	{"h1": 3, "h2": 4, "_version": 1, "_meta": {"variant": "lite", ...}}
type ResultData struct {
	Scores  map[string]int
	Version int
	Meta    Meta
}

// Keys returns the question ids in sorted order.
func (d ResultData) Keys() []string {
	keys := make([]string, 0, len(d.Scores))
	for k := range d.Scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens scores and metadata into a single object.
func (d ResultData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Scores)+2)
	for k, v := range d.Scores {
		out[k] = v
	}
	out[versionKey] = d.Version
	out[metaKey] = d.Meta
	return json.Marshal(out)
}

// UnmarshalJSON splits a flattened answer map back into scores and metadata.
// Records written before the _meta block existed get their variant inferred
// from the number of answers.
func (d *ResultData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Scores = make(map[string]int, len(raw))
	d.Version = 0
	d.Meta = Meta{}
	hasMeta := false
	for k, v := range raw {
		switch {
		case k == versionKey:
			if err := json.Unmarshal(v, &d.Version); err != nil {
				return fmt.Errorf("decode %s: %w", versionKey, err)
			}
		case k == metaKey:
			if err := json.Unmarshal(v, &d.Meta); err != nil {
				return fmt.Errorf("decode %s: %w", metaKey, err)
			}
			hasMeta = true
		case strings.HasPrefix(k, "_"):
			// Unknown metadata keys are ignored.
		default:
			var score float64
			if err := json.Unmarshal(v, &score); err != nil {
				return fmt.Errorf("decode answer %q: %w", k, err)
			}
			d.Scores[k] = int(score)
		}
	}
	if !hasMeta {
		d.Meta = Meta{
			Variant:       DetectVariant(len(d.Scores)),
			QuestionCount: len(d.Scores),
			Timestamp:     time.Time{},
		}
	}
	return nil
}

// DetectVariant infers a variant from an answer count. It is only used for
// records stored without an explicit variant tag.
func DetectVariant(questionCount int) Variant {
	if questionCount < legacyLiteThreshold {
		return VariantLite
	}
	return VariantFull
}
