// Package rank produces lexicographic fractional ranks. A rank strictly
// between any two existing ranks can always be generated without renumbering
// the neighbours.
package rank

import (
	"errors"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const maxRankLen = 256

var (
	ErrOrder     = errors.New("rank: lower bound must sort before upper bound")
	ErrInvalid   = errors.New("rank: invalid character")
	ErrNoSpace   = errors.New("rank: no space between ranks")
	ErrExhausted = errors.New("rank: unable to find unique rank")
)

func digit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	default:
		return 0, false
	}
}

func char(d int) byte {
	if d < 0 {
		d = 0
	}
	if d > 35 {
		d = 35
	}
	return alphabet[d]
}

// Normalize lowercases and trims r.
func Normalize(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}

// Between returns a rank strictly between a and b. Either bound may be empty
// to mean unbounded on that side. Generated ranks never end in '0', so
// another rank always fits between a generated rank and its neighbours.
func Between(a, b string) (string, error) {
	a, b = Normalize(a), Normalize(b)
	if !valid(a) || !valid(b) {
		return "", ErrInvalid
	}
	if a != "" && b != "" && !(a < b) {
		return "", ErrOrder
	}
	r, err := midpoint(a, b)
	if err != nil {
		return "", err
	}
	if len(r) > maxRankLen {
		return "", ErrNoSpace
	}
	return r, nil
}

func valid(s string) bool {
	for i := 0; i < len(s); i++ {
		if _, ok := digit(s[i]); !ok {
			return false
		}
	}
	return true
}

// midpoint expects a < b with a right-padded by '0'; b == "" is unbounded.
func midpoint(a, b string) (string, error) {
	if b != "" {
		n := 0
		for n < len(b) && at(a, n) == b[n] {
			n++
		}
		if n == len(b) {
			// b is a followed by zeros ("y" < "y0"): nothing fits in between.
			return "", ErrNoSpace
		}
		if n > 0 {
			rest := ""
			if n < len(a) {
				rest = a[n:]
			}
			r, err := midpoint(rest, b[n:])
			if err != nil {
				return "", err
			}
			return b[:n] + r, nil
		}
	}

	da, _ := digit(at(a, 0))
	db := len(alphabet)
	if b != "" {
		db, _ = digit(b[0])
	}
	if db-da > 1 {
		return string(char((da + db) / 2)), nil
	}
	// Adjacent digits: keep a's digit and extend past it.
	rest := ""
	if len(a) > 1 {
		rest = a[1:]
	}
	r, err := midpoint(rest, "")
	if err != nil {
		return "", err
	}
	return string(char(da)) + r, nil
}

// at returns s[i], or '0' past the end of s.
func at(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return '0'
}

func After(a string) (string, error)  { return Between(a, "") }
func Before(b string) (string, error) { return Between("", b) }
func Initial() string {
	r, _ := Between("", "")
	return r
}

// BetweenUnique returns a rank between lower and upper that is not in existing.
// Keys of existing must be normalized.
func BetweenUnique(existing map[string]bool, lower, upper string) (string, error) {
	cur := Normalize(lower)
	upper = Normalize(upper)
	for i := 0; i < maxRankLen; i++ {
		r, err := Between(cur, upper)
		if err != nil {
			return "", err
		}
		if !existing[r] {
			return r, nil
		}
		cur = r
	}
	return "", ErrExhausted
}

// Sequence returns n strictly increasing, evenly spaced ranks of equal width.
func Sequence(n int) []string {
	if n <= 0 {
		return nil
	}
	width, space := 1, 36
	for space <= n {
		width++
		space *= 36
	}
	step := space / (n + 1)
	out := make([]string, n)
	for i := range out {
		out[i] = encode((i+1)*step, width)
	}
	return out
}

func encode(v, width int) string {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = char(v % 36)
		v /= 36
	}
	return string(buf)
}
