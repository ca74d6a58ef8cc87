package readstructure

import (
	"errors"
	"testing"

	"seqsubmit/internal/submiterr"
)

func TestReadLength(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"76T8B8B76T", 76},
		{"151T8B8B151T", 151},
		{"3M2S71T8B8B3M2S71T", 76},
		{"101T", 101},
		{"8B101T", 109},
		{"150", 150},
	}
	for _, tc := range cases {
		got, err := ReadLength(tc.in)
		if err != nil {
			t.Fatalf("ReadLength(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ReadLength(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestReadLengthMalformed(t *testing.T) {
	for _, in := range []string{"", "T", "MST8B", "-5T"} {
		if _, err := ReadLength(in); !errors.Is(err, submiterr.ErrMalformedReadStructure) {
			t.Fatalf("ReadLength(%q): expected malformed error, got %v", in, err)
		}
	}
}
