package rank

import (
	"errors"
	"testing"
)

func TestBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		lo, hi string
	}{
		{name: "open", lo: "", hi: ""},
		{name: "open upper", lo: "h", hi: ""},
		{name: "open lower", lo: "", hi: "h"},
		{name: "wide gap", lo: "a", hi: "z"},
		{name: "adjacent digits", lo: "s", hi: "t"},
		{name: "shared prefix", lo: "h0", hi: "h5"},
		{name: "max digits", lo: "zz", hi: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			k, err := Between(tt.lo, tt.hi)
			if err != nil {
				t.Fatalf("Between(%q,%q) err: %v", tt.lo, tt.hi, err)
			}
			if tt.lo != "" && !(tt.lo < k) {
				t.Fatalf("key %q not after %q", k, tt.lo)
			}
			if tt.hi != "" && !(k < tt.hi) {
				t.Fatalf("key %q not before %q", k, tt.hi)
			}
		})
	}
}

func TestBetween_PrefixAdjacentHasNoSpace(t *testing.T) {
	t.Parallel()

	// '0' is the smallest digit and end-of-string sorts before it.
	if _, err := Between("y", "y0"); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("expected ErrNoSpace, got %v", err)
	}
}

func TestBetween_RejectsInvertedBounds(t *testing.T) {
	t.Parallel()

	if _, err := Between("m", "c"); !errors.Is(err, ErrOrder) {
		t.Fatalf("expected ErrOrder, got %v", err)
	}
	if _, err := Between("m!", ""); !errors.Is(err, ErrInvalidChar) {
		t.Fatalf("expected ErrInvalidChar, got %v", err)
	}
}

func TestBetweenUnique_SkipsTakenKeys(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{"p": true}
	k, err := BetweenUnique(taken, "m", "t")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if taken[k] || !(k > "m" && k < "t") {
		t.Fatalf("bad key %q", k)
	}
}

func TestSpread_IsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	keys, err := Spread(nil, "m", "n", 12)
	if err != nil {
		t.Fatalf("Spread err: %v", err)
	}
	prev := "m"
	for _, k := range keys {
		if !(prev < k) || !(k < "n") {
			t.Fatalf("keys not strictly increasing within bounds: %v", keys)
		}
		prev = k
	}
}
