// Package rank implements lexicographic order keys (fractional indexing over a
// base36 alphabet). A key can always be generated after any other key, and
// between two keys whenever they are not prefix-adjacent ("y" and "y0").
package rank

import (
	"errors"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	minDigit = 0
	maxDigit = len(alphabet) - 1
	maxWidth = 256
)

var (
	ErrOrder       = errors.New("rank: lower bound must sort before upper bound")
	ErrNoSpace     = errors.New("rank: no space between keys")
	ErrInvalidChar = errors.New("rank: invalid key character")
	ErrExhausted   = errors.New("rank: unable to find unique key")
)

func digit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	}
	return 0, false
}

// Normalize lowercases and trims a key.
func Normalize(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Between returns a key strictly between lo and hi. Either bound may be empty,
// meaning unbounded on that side.
func Between(lo, hi string) (string, error) {
	lo, hi = Normalize(lo), Normalize(hi)
	if lo != "" && hi != "" && lo >= hi {
		return "", ErrOrder
	}

	inRange := func(k string) bool {
		return k != "" && (lo == "" || lo < k) && (hi == "" || k < hi)
	}

	prefix := make([]byte, 0, 8)
	for i := 0; i < maxWidth; i++ {
		dl, dh := minDigit, maxDigit
		if i < len(lo) {
			v, ok := digit(lo[i])
			if !ok {
				return "", ErrInvalidChar
			}
			dl = v
		}
		if i < len(hi) {
			v, ok := digit(hi[i])
			if !ok {
				return "", ErrInvalidChar
			}
			dh = v
		}

		switch {
		case dl == dh:
			prefix = append(prefix, alphabet[dl])
		case dh-dl > 1:
			k := string(append(prefix, alphabet[dl+(dh-dl)/2]))
			if !inRange(k) {
				return "", ErrNoSpace
			}
			return k, nil
		default:
			// Adjacent digits: any extension of lo still sorts before hi.
			k := lo + "0"
			if !inRange(k) {
				return "", ErrNoSpace
			}
			return k, nil
		}
	}
	return "", ErrNoSpace
}

// BetweenUnique returns a key between lo and hi that is not in taken.
// Collisions tighten the lower bound and retry.
func BetweenUnique(taken map[string]bool, lo, hi string) (string, error) {
	cur := Normalize(lo)
	for i := 0; i < maxWidth; i++ {
		k, err := Between(cur, hi)
		if err != nil {
			return "", err
		}
		if !taken[k] {
			return k, nil
		}
		cur = k
	}
	return "", ErrExhausted
}

// Spread returns n increasing keys strictly between lo and hi, none of them in taken.
func Spread(taken map[string]bool, lo, hi string, n int) ([]string, error) {
	out := make([]string, 0, n)
	cur := lo
	for i := 0; i < n; i++ {
		k, err := BetweenUnique(taken, cur, hi)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
		cur = k
	}
	return out, nil
}
