package types

import "time"

// FieldType identifies which part of a memory a token or posting came from.
type FieldType string

const (
	FieldContent  FieldType = "content"
	FieldMetadata FieldType = "metadata"
	FieldTags     FieldType = "tags"
)

// AllFields lists every indexable field in a stable order.
var AllFields = []FieldType{FieldContent, FieldMetadata, FieldTags}

// FieldWeight returns the multi-field search weight for a field.
func FieldWeight(f FieldType) float64 {
	switch f {
	case FieldContent:
		return 1.0
	case FieldMetadata:
		return 0.7
	case FieldTags:
		return 0.8
	default:
		return 0
	}
}

// Memory is a single stored record. The search core never owns memories;
// it holds only index state derived from them, keyed by ID.
type Memory struct {
	ID          string
	Content     string
	Metadata    string
	Tags        []string
	Importance  float64
	AccessCount uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FieldValue returns the raw text of one indexable field.
func (m *Memory) FieldValue(f FieldType) string {
	switch f {
	case FieldContent:
		return m.Content
	case FieldMetadata:
		return m.Metadata
	case FieldTags:
		return joinTags(m.Tags)
	default:
		return ""
	}
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
