package model

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	// ReservedAdminName grants the admin role to whoever picks it.
	ReservedAdminName = "admin"

	// DefaultNamePrefix is used for sessions that do not supply a name.
	DefaultNamePrefix = "Usuario"

	// DefaultNameRange bounds the random suffix of a default name.
	DefaultNameRange = 1000
)

// IsReservedAdminName reports whether name equals the reserved admin name, ignoring case.
func IsReservedAdminName(name string) bool {
	return strings.EqualFold(name, ReservedAdminName)
}

// DefaultName synthesizes a placeholder display name such as "Usuario417".
func DefaultName() string {
	return fmt.Sprintf("%s%d", DefaultNamePrefix, rand.IntN(DefaultNameRange))
}

// NormalizeName returns the key used for case-insensitive name comparison.
func NormalizeName(name string) string {
	return strings.ToLower(name)
}

// SameName reports whether two display names collide.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
