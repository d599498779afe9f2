package kanban

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind discriminates the custom field variants a board may define.
type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldDate   FieldKind = "date"
	FieldSelect FieldKind = "select"
)

var fieldKindSet = map[FieldKind]struct{}{
	FieldText:   {},
	FieldNumber: {},
	FieldDate:   {},
	FieldSelect: {},
}

// ParseFieldKind converts a string into a known FieldKind.
func ParseFieldKind(value string) (FieldKind, bool) {
	normalized := FieldKind(strings.ToLower(strings.TrimSpace(value)))
	_, ok := fieldKindSet[normalized]
	return normalized, ok
}

// FieldDef declares one custom field on a board.
type FieldDef struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
}

// dateLayout is the wire format for date field values.
const dateLayout = "2006-01-02"

// FieldValue is a tagged variant carrying exactly one payload matching its
// kind. Values are validated against the board's field definitions at the
// system boundary so illegal kind/value combinations never reach storage.
type FieldValue struct {
	Kind   FieldKind `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Number *float64  `json:"number,omitempty"`
	Date   string    `json:"date,omitempty"`
	Option string    `json:"option,omitempty"`
}

// Validate checks the value against its declared kind and the field
// definition it targets.
func (v FieldValue) Validate(def FieldDef) error {
	if v.Kind != def.Kind {
		return fmt.Errorf("field %q: value kind %q does not match definition kind %q", def.Key, v.Kind, def.Kind)
	}
	switch v.Kind {
	case FieldText:
		if v.Number != nil || v.Date != "" || v.Option != "" {
			return fmt.Errorf("field %q: text value carries foreign payload", def.Key)
		}
	case FieldNumber:
		if v.Number == nil {
			return fmt.Errorf("field %q: number value missing payload", def.Key)
		}
		if v.Text != "" || v.Date != "" || v.Option != "" {
			return fmt.Errorf("field %q: number value carries foreign payload", def.Key)
		}
	case FieldDate:
		if v.Date == "" {
			return fmt.Errorf("field %q: date value missing payload", def.Key)
		}
		if _, err := time.Parse(dateLayout, v.Date); err != nil {
			return fmt.Errorf("field %q: date %q not in YYYY-MM-DD form", def.Key, v.Date)
		}
		if v.Text != "" || v.Number != nil || v.Option != "" {
			return fmt.Errorf("field %q: date value carries foreign payload", def.Key)
		}
	case FieldSelect:
		if v.Option == "" {
			return fmt.Errorf("field %q: select value missing option", def.Key)
		}
		if v.Text != "" || v.Number != nil || v.Date != "" {
			return fmt.Errorf("field %q: select value carries foreign payload", def.Key)
		}
		found := false
		for _, opt := range def.Options {
			if opt == v.Option {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("field %q: option %q not among defined options", def.Key, v.Option)
		}
	default:
		return fmt.Errorf("field %q: unknown kind %q", def.Key, v.Kind)
	}
	return nil
}

// ValidateFieldValues checks a full value map against a board's definitions.
// Values for undefined keys are rejected.
func ValidateFieldValues(defs []FieldDef, values map[string]FieldValue) error {
	byKey := make(map[string]FieldDef, len(defs))
	for _, def := range defs {
		byKey[def.Key] = def
	}
	for key, value := range values {
		def, ok := byKey[key]
		if !ok {
			return fmt.Errorf("field %q is not defined on this board", key)
		}
		if err := value.Validate(def); err != nil {
			return err
		}
	}
	return nil
}
