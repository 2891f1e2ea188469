package item

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Raw is an untrusted item object decoded from a vision model response.
// Fields are read one by one and coerced into the strict Item shape.
type Raw map[string]any

// Validation reports what FromRaw had to change.
type Validation struct {
	// UnknownCategory holds the model's category when it was not part of
	// the enumeration and was coerced to other.
	UnknownCategory string
}

// FromRaw converts a raw object into an Item. ok is false when the object
// carries no usable name.
func FromRaw(raw Raw) (it Item, v Validation, ok bool) {
	name := stringField(raw, "name")
	if name == "" {
		return Item{}, v, false
	}

	category := Category(strings.ToLower(stringField(raw, "category")))
	if !category.Valid() {
		if category != "" {
			v.UnknownCategory = string(category)
		}
		category = CategoryOther
	}

	confidence := Confidence(strings.ToLower(stringField(raw, "confidence")))
	if confidence.Rank() == 0 {
		confidence = ConfidenceLow
	}

	condition := Condition(strings.ToLower(stringField(raw, "condition_estimate")))
	switch condition {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionUnknown:
	default:
		condition = ConditionUnknown
	}

	it = Item{
		ID:                  uuid.NewString(),
		Name:                name,
		Category:            category,
		Brand:               stringField(raw, "brand"),
		Model:               stringField(raw, "model"),
		Era:                 stringField(raw, "era"),
		Condition:           condition,
		NotableFeatures:     stringList(raw["notable_features"]),
		SearchQuery:         stringField(raw, "search_query"),
		Confidence:          confidence,
		ConfidenceReasoning: stringField(raw, "confidence_reasoning"),
		EstimatedValueHint:  stringField(raw, "estimated_value_hint"),
	}
	return it, v, true
}

// stringField returns a trimmed string for key. Numbers are formatted,
// null and other shapes become "".
func stringField(raw Raw, key string) string {
	switch val := raw[key].(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%g", val))
	}
	return ""
}

func stringList(val any) []string {
	list, ok := val.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
