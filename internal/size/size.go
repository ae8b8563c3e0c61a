// Package size parses volume resize tokens of the form [+]<number>[K|M|G|T]
// and resolves them against a volume's current size.
package size

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidFormat reports a token outside the [+]<number>[K|M|G|T]
// grammar.
var ErrInvalidFormat = errors.New("invalid size format")

// TooSmallError reports an absolute resize that does not grow the
// volume. Shrinking is not supported by the control plane.
type TooSmallError struct {
	Requested string
	Current   string
}

func (e *TooSmallError) Error() string {
	return fmt.Sprintf("size %s is not larger than current size %s", e.Requested, e.Current)
}

// Unit multipliers, binary.
const (
	kib = int64(1) << 10
	mib = int64(1) << 20
	gib = int64(1) << 30
	tib = int64(1) << 40
)

var tokenPattern = regexp.MustCompile(`^(\+?)(\d+)([KMGT]?)$`)

// Size is a parsed resize token.
type Size struct {
	// Relative marks a "+"-prefixed token, added to the current size
	// instead of replacing it.
	Relative bool
	// Bytes is the token's magnitude in bytes.
	Bytes int64
}

// Parse parses a resize token. A bare number is bytes; K, M, G and T are
// binary multiples.
func Parse(token string) (Size, error) {
	m := tokenPattern.FindStringSubmatch(token)
	if m == nil {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidFormat, token)
	}

	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidFormat, token)
	}

	var mult int64 = 1
	switch m[3] {
	case "K":
		mult = kib
	case "M":
		mult = mib
	case "G":
		mult = gib
	case "T":
		mult = tib
	}

	return Size{Relative: m[1] == "+", Bytes: n * mult}, nil
}

// Resolve computes the new absolute size for a resize call.
//
// A relative token is added to the current size after normalizing both
// to bytes. An absolute token replaces the current size and must be
// strictly greater than it, otherwise a TooSmallError is returned and
// no resize should be attempted.
func Resolve(current, token string) (string, error) {
	cur, err := Parse(current)
	if err != nil {
		return "", fmt.Errorf("current size: %w", err)
	}
	if cur.Relative {
		return "", fmt.Errorf("current size: %w: %q", ErrInvalidFormat, current)
	}

	req, err := Parse(token)
	if err != nil {
		return "", err
	}

	if req.Relative {
		return Format(cur.Bytes + req.Bytes), nil
	}
	if req.Bytes <= cur.Bytes {
		return "", &TooSmallError{Requested: token, Current: current}
	}
	return Format(req.Bytes), nil
}

// Format renders a byte count in the largest unit that divides it
// evenly, so 1536 GiB stays "1536G" rather than a fractional "1.5T".
func Format(bytes int64) string {
	switch {
	case bytes >= tib && bytes%tib == 0:
		return fmt.Sprintf("%dT", bytes/tib)
	case bytes >= gib && bytes%gib == 0:
		return fmt.Sprintf("%dG", bytes/gib)
	case bytes >= mib && bytes%mib == 0:
		return fmt.Sprintf("%dM", bytes/mib)
	case bytes >= kib && bytes%kib == 0:
		return fmt.Sprintf("%dK", bytes/kib)
	default:
		return strconv.FormatInt(bytes, 10)
	}
}
