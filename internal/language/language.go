package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize parses a language identifier ("de", "deu", "German") and returns
// its canonical BCP 47 base form. An error is returned for unrecognized input.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("language code is empty")
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", trimmed, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("unrecognized language %q", trimmed)
	}
	return base.String(), nil
}

// IsValid reports whether the identifier parses as a language.
func IsValid(code string) bool {
	_, err := Normalize(code)
	return err == nil
}

// DisplayName returns the English display name for a language code, or the
// input unchanged when it cannot be resolved.
func DisplayName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}

// Equal reports whether two language identifiers name the same base language.
func Equal(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return na == nb
}
