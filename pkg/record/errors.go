package record

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer      = errors.New("record: buffer too short")
	ErrDiscriminator    = errors.New("record: account discriminator mismatch")
	ErrInvalidRole      = errors.New("record: invalid operator role")
	ErrInvalidOptionTag = errors.New("record: invalid option tag")
	ErrInvalidBool      = errors.New("record: invalid bool")
	ErrURITooLong       = errors.New("record: packet uri too long")
	ErrInvalidURI       = errors.New("record: packet uri is not valid utf-8")

	ErrUnauthorized     = errors.New("record: signer not authorized")
	ErrApprovalRequired = errors.New("record: employee writes require approval")
)

// DecodeError locates a decode failure in the account payload.
type DecodeError struct {
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
