package format

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for out-of-range helper arguments.
var ErrInvalidArgument = errors.New("invalid argument")

// Chunk splits value into consecutive pieces of at most maxLen characters.
// Characters are runes, so multi-byte names are never cut mid-symbol.
func Chunk(value string, maxLen int) ([]string, error) {
	if maxLen < 1 {
		return nil, fmt.Errorf("%w: maxLen must be at least 1, got %d", ErrInvalidArgument, maxLen)
	}

	runes := []rune(value)
	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for start := 0; start < len(runes); start += maxLen {
		end := min(start+maxLen, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks, nil
}
