// Package ident generates the short tokens used as column and card ids.
package ident

import (
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of base36 characters in a generated id.
const Length = 7

// Generator produces a new id on every call.
type Generator func() string

// New returns a short lowercase alphanumeric token. Uniqueness is
// probabilistic: 36^7 values drawn from a random UUID.
func New() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(36)
	if len(s) < Length {
		s = strings.Repeat("0", Length-len(s)) + s
	}
	return s[len(s)-Length:]
}
