package kanban

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepStatus is the lifecycle of one translation step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepApproved   StepStatus = "approved"
	StepError      StepStatus = "error"
)

var stepStatusSet = map[StepStatus]struct{}{
	StepPending:    {},
	StepInProgress: {},
	StepCompleted:  {},
	StepApproved:   {},
	StepError:      {},
}

// ParseStepStatus converts a string into a known StepStatus.
func ParseStepStatus(value string) (StepStatus, bool) {
	normalized := StepStatus(strings.ToLower(strings.TrimSpace(value)))
	_, ok := stepStatusSet[normalized]
	return normalized, ok
}

// Done reports whether the status counts toward pipeline completion.
func (s StepStatus) Done() bool {
	return s == StepCompleted || s == StepApproved
}

// TranslationStep is one source-to-target conversion unit within a card's
// pipeline. The ordered step list is stored as a JSON column on the card.
type TranslationStep struct {
	FromLang       string     `json:"fromLang"`
	ToLang         string     `json:"toLang"`
	OriginalText   string     `json:"originalText"`
	TranslatedText string     `json:"translatedText,omitempty"`
	Status         StepStatus `json:"status"`
	ManuallyEdited bool       `json:"manuallyEdited,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
}

// EncodeSteps serializes a step list for storage.
func EncodeSteps(steps []TranslationStep) (string, error) {
	if len(steps) == 0 {
		return "", nil
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("marshal steps: %w", err)
	}
	return string(data), nil
}

// DecodeSteps deserializes a stored step list. Unknown statuses are rejected
// so corrupt rows surface loudly instead of silently misbehaving.
func DecodeSteps(raw string) ([]TranslationStep, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	var steps []TranslationStep
	if err := json.Unmarshal([]byte(trimmed), &steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	for i, step := range steps {
		if _, ok := stepStatusSet[step.Status]; !ok {
			return nil, fmt.Errorf("step %d: unknown status %q", i, step.Status)
		}
	}
	return steps, nil
}
