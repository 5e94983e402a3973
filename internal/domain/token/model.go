package token

import (
	"regexp"
	"strings"
)

// ZeroAddress is the owner reported for a token whose lookup failed.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// DefaultTotalUnits is the conventional certificate denominator: 1000 units
// equal the whole certificate.
const DefaultTotalUnits int64 = 1000

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Ownership is the resolved holder of one fractional certificate token.
type Ownership struct {
	TokenID string `json:"token_id"`
	Owner   string `json:"owner"`
	Units   int64  `json:"units"`
}

// Placeholder returns the fallback ownership for a token that could not be
// resolved.
func Placeholder(tokenID string) Ownership {
	return Ownership{TokenID: tokenID, Owner: ZeroAddress, Units: 0}
}

// IsPlaceholder reports whether o is the fallback value.
func (o Ownership) IsPlaceholder() bool {
	return o.Owner == ZeroAddress && o.Units == 0
}

// Fraction returns the share of the certificate held, in [0, 1] for sane
// inputs. A non-positive total uses DefaultTotalUnits.
func (o Ownership) Fraction(total int64) float64 {
	return Fraction(o.Units, total)
}

// Fraction divides units by total, falling back to DefaultTotalUnits.
func Fraction(units, total int64) float64 {
	if total <= 0 {
		total = DefaultTotalUnits
	}
	return float64(units) / float64(total)
}

// IsAddress reports whether s is a 20-byte hex account address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// SameAddress compares two hex addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
