package field

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/syssam/restflow"
)

// Min validates that a decoded numeric value is at least min.
func Min(min float64) Validator {
	return ValidatorFunc(func(v any) error {
		if f, ok := asFloat(v); ok && f < min {
			return failCode("min_value", min)
		}
		return nil
	})
}

// Max validates that a decoded numeric value is at most max.
func Max(max float64) Validator {
	return ValidatorFunc(func(v any) error {
		if f, ok := asFloat(v); ok && f > max {
			return failCode("max_value", max)
		}
		return nil
	})
}

// MaxLen validates that a decoded string has at most n characters.
func MaxLen(n int) Validator {
	return ValidatorFunc(func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) > n {
			return failCode("max_length", n)
		}
		return nil
	})
}

// MinLen validates that a decoded string has at least n characters.
func MinLen(n int) Validator {
	return ValidatorFunc(func(v any) error {
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) < n {
			return failCode("min_length", n)
		}
		return nil
	})
}

// Match validates a decoded string against re, failing with msg.
func Match(re *regexp.Regexp, msg string) Validator {
	return ValidatorFunc(func(v any) error {
		if s, ok := v.(string); ok && !re.MatchString(s) {
			return restflow.NewValidationError(msg)
		}
		return nil
	})
}

func failCode(code string, args ...any) *restflow.ValidationError {
	msg := defaultMessages[code]
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return restflow.NewValidationError(msg)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
