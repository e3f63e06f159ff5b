package record

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/merkle"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// Reader is a forward-only cursor over a fixed-layout buffer. Every read
// checks the remaining length before touching the buffer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(field string, n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, &DecodeError{Field: field, Offset: r.off, Err: fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, r.Remaining())}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadU8(field string) (uint8, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool accepts only 0 and 1.
func (r *Reader) ReadBool(field string) (bool, error) {
	off := r.off
	v, err := r.ReadU8(field)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &DecodeError{Field: field, Offset: off, Err: fmt.Errorf("%w: %d", ErrInvalidBool, v)}
	}
}

func (r *Reader) ReadU32(field string) (uint32, error) {
	b, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64(field string) (uint64, error) {
	b, err := r.take(field, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64(field string) (int64, error) {
	v, err := r.ReadU64(field)
	return int64(v), err
}

func (r *Reader) ReadHash(field string) (merkle.Digest, error) {
	var d merkle.Digest
	b, err := r.take(field, merkle.DigestSize)
	if err != nil {
		return d, err
	}
	copy(d[:], b)
	return d, nil
}

func (r *Reader) ReadPublicKey(field string) (pda.PublicKey, error) {
	var pk pda.PublicKey
	b, err := r.take(field, pda.PublicKeySize)
	if err != nil {
		return pk, err
	}
	copy(pk[:], b)
	return pk, nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(field string, n int) ([]byte, error) {
	b, err := r.take(field, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) Skip(field string, n int) error {
	_, err := r.take(field, n)
	return err
}

func (r *Reader) readTag(field string) (bool, error) {
	off := r.off
	tag, err := r.ReadU8(field)
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &DecodeError{Field: field, Offset: off, Err: fmt.Errorf("%w: %d", ErrInvalidOptionTag, tag)}
	}
}

// ReadOptionalPublicKey reads a tag byte and always consumes the 32-byte slot.
func (r *Reader) ReadOptionalPublicKey(field string) (Option[pda.PublicKey], error) {
	present, err := r.readTag(field)
	if err != nil {
		return None[pda.PublicKey](), err
	}
	pk, err := r.ReadPublicKey(field)
	if err != nil || !present {
		return None[pda.PublicKey](), err
	}
	return Some(pk), nil
}

// ReadOptionalI64 reads a tag byte and always consumes the 8-byte slot.
func (r *Reader) ReadOptionalI64(field string) (Option[int64], error) {
	present, err := r.readTag(field)
	if err != nil {
		return None[int64](), err
	}
	v, err := r.ReadI64(field)
	if err != nil || !present {
		return None[int64](), err
	}
	return Some(v), nil
}

// ReadPaddedString reads a u32 length prefix, the string bytes, and the
// padding up to max so the cursor always advances by 4+max.
func (r *Reader) ReadPaddedString(field string, max int) (string, error) {
	off := r.off
	n, err := r.ReadU32(field)
	if err != nil {
		return "", err
	}
	if int64(n) > int64(max) {
		return "", &DecodeError{Field: field, Offset: off, Err: fmt.Errorf("%w: length %d exceeds %d", ErrURITooLong, n, max)}
	}
	slot, err := r.take(field, max)
	if err != nil {
		return "", err
	}
	s := slot[:n]
	if !utf8.Valid(s) {
		return "", &DecodeError{Field: field, Offset: off + 4, Err: ErrInvalidURI}
	}
	return string(s), nil
}
