// Package matchid generates sortable match identifiers: a UUIDv7 encoded as
// 26 lowercase Crockford base32 characters.
package matchid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32, lowercase
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded match ID.
const Length = 26

// New returns a new match ID. IDs generated later sort after earlier ones.
func New() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate match id: %w", err)
	}
	return Encode(id), nil
}

// MustNew is like New but panics if the system random source fails.
func MustNew() string {
	id, err := New()
	if err != nil {
		panic(err)
	}
	return id
}

// Encode renders a UUID as 26 base32 characters, most significant bits first.
// The 128 bits are left-padded with two zero bits.
func Encode(id uuid.UUID) string {
	out := make([]byte, Length)
	// 130 bits: two leading zero bits followed by the UUID
	for i := 0; i < Length; i++ {
		bitOffset := i*5 - 2
		var value byte
		for b := 0; b < 5; b++ {
			pos := bitOffset + b
			if pos < 0 {
				continue
			}
			bit := (id[pos/8] >> (7 - pos%8)) & 1
			value = value<<1 | bit
		}
		out[i] = alphabet[value]
	}
	return string(out)
}

// Decode parses an encoded match ID back into its UUID.
func Decode(s string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := Validate(s); err != nil {
		return id, err
	}
	for i := 0; i < Length; i++ {
		value := byte(strings.IndexByte(alphabet, s[i]))
		bits := 5
		if i == 0 {
			bits = 3
		}
		for b := bits - 1; b >= 0; b-- {
			pos := i*5 - 2 + (4 - b)
			if pos < 0 {
				continue
			}
			if (value>>b)&1 == 1 {
				id[pos/8] |= 1 << (7 - pos%8)
			}
		}
	}
	return id, nil
}

// Validate checks that s is a well-formed match ID.
func Validate(s string) error {
	if len(s) != Length {
		return fmt.Errorf("match id must be exactly %d characters, got %d", Length, len(s))
	}
	if s[0] > '7' {
		return fmt.Errorf("match id first character must be 0-7, got %c", s[0])
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", s[i], i)
		}
	}
	return nil
}
