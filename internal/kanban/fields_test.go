package kanban_test

import (
	"testing"

	"cardflow/internal/kanban"
)

func TestFieldValueValidate(t *testing.T) {
	number := 2.0
	defs := []kanban.FieldDef{
		{Key: "notes", Label: "Notes", Kind: kanban.FieldText},
		{Key: "estimate", Label: "Estimate", Kind: kanban.FieldNumber},
		{Key: "due", Label: "Due", Kind: kanban.FieldDate},
		{Key: "priority", Label: "Priority", Kind: kanban.FieldSelect, Options: []string{"low", "high"}},
	}

	cases := []struct {
		name    string
		values  map[string]kanban.FieldValue
		wantErr bool
	}{
		{
			name: "valid values for every kind",
			values: map[string]kanban.FieldValue{
				"notes":    {Kind: kanban.FieldText, Text: "hello"},
				"estimate": {Kind: kanban.FieldNumber, Number: &number},
				"due":      {Kind: kanban.FieldDate, Date: "2026-09-01"},
				"priority": {Kind: kanban.FieldSelect, Option: "high"},
			},
		},
		{
			name:    "kind mismatch",
			values:  map[string]kanban.FieldValue{"estimate": {Kind: kanban.FieldText, Text: "two"}},
			wantErr: true,
		},
		{
			name:    "number payload on text value",
			values:  map[string]kanban.FieldValue{"notes": {Kind: kanban.FieldText, Text: "hi", Number: &number}},
			wantErr: true,
		},
		{
			name:    "malformed date",
			values:  map[string]kanban.FieldValue{"due": {Kind: kanban.FieldDate, Date: "01.09.2026"}},
			wantErr: true,
		},
		{
			name:    "option outside defined set",
			values:  map[string]kanban.FieldValue{"priority": {Kind: kanban.FieldSelect, Option: "urgent"}},
			wantErr: true,
		},
		{
			name:    "undefined key",
			values:  map[string]kanban.FieldValue{"ghost": {Kind: kanban.FieldText, Text: "boo"}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := kanban.ValidateFieldValues(defs, tc.values)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseFieldKind(t *testing.T) {
	if kind, ok := kanban.ParseFieldKind(" Select "); !ok || kind != kanban.FieldSelect {
		t.Fatalf("expected select, got %q ok=%v", kind, ok)
	}
	if _, ok := kanban.ParseFieldKind("checkbox"); ok {
		t.Fatal("expected unknown kind to be rejected")
	}
}
