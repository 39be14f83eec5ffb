package message

import (
	"errors"
	"fmt"

	"github.com/danmuck/syntaxworker/internal/protocol/schema"
)

var (
	ErrDecode         = errors.New("message: decode failed")
	ErrMissingTag     = errors.New("message: missing variant tag")
	ErrInvalidVersion = errors.New("message: invalid payload version")
	ErrUnknownServer  = errors.New("message: unknown server variant")
	ErrUnencodable    = errors.New("message: variant cannot be encoded")
)

// DecodeError reports a malformed inbound payload. errors.Is(err, ErrDecode)
// holds for every DecodeError.
type DecodeError struct {
	Tag schema.Tag
	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag == 0 {
		return fmt.Sprintf("message: decode: %v", e.Err)
	}
	return fmt.Sprintf("message: decode %s: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func decodeErr(tag schema.Tag, err error) error {
	return &DecodeError{Tag: tag, Err: err}
}
