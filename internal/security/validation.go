package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Limits on the JSON arguments of a model tool call.
const (
	MaxArgumentBytes = 1 << 20
	MaxArgumentDepth = 32
)

// Argument validation errors.
var (
	ErrArgumentsTooLarge = errors.New("tool arguments exceed maximum size")
	ErrArgumentsTooDeep  = errors.New("tool arguments nest too deeply")
	ErrInvalidJSON       = errors.New("invalid JSON")
)

// ValidateArguments checks raw tool-call arguments against MaxArgumentBytes
// and MaxArgumentDepth without decoding them into memory. Well-formedness
// beyond nesting is left to the decoder.
func ValidateArguments(raw []byte) error {
	if len(raw) > MaxArgumentBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrArgumentsTooLarge, len(raw), MaxArgumentBytes)
	}
	return checkDepth(raw, MaxArgumentDepth)
}

func checkDepth(raw []byte, limit int) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch delim {
		case '{', '[':
			if depth++; depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrArgumentsTooDeep, depth, limit)
			}
		case '}', ']':
			depth--
		}
	}
}
