package format

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotANumber is returned when lenient numeric parsing fails.
var ErrNotANumber = errors.New("not a number")

var lenientNumberPattern = regexp.MustCompile(`^[+-]?(?:\d+(?:[.,]\d*)?|[.,]\d+)$`)

// ParseLenientFloat parses a decimal number accepting either ',' or '.' as the
// decimal separator. Thousands separators and exponents are rejected.
func ParseLenientFloat(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty input", ErrNotANumber)
	}
	if !lenientNumberPattern.MatchString(trimmed) {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, value)
	}

	parsed, err := strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrNotANumber, value, err)
	}

	return parsed, nil
}

// Kcal renders a calorie value with at most two decimals and no trailing zeros.
func Kcal(value float64) string {
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64)
}
