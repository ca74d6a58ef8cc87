// Package readstructure decodes Picard-style read structure strings such as
// "76T8B8B76T" into the length of the first template read.
package readstructure

import (
	"fmt"
	"strconv"
	"strings"

	"seqsubmit/internal/submiterr"
)

// TemplateTag marks a template (biological) read segment.
const TemplateTag = "T"

// ReadLength returns the length of the first template read. Segments that
// precede the first template tag (UMIs, skips) are counted toward it, so
// "3M2S71T8B8B3M2S71T" yields 76.
func ReadLength(structure string) (int, error) {
	first, _, _ := strings.Cut(structure, TemplateTag)
	if n, err := strconv.Atoi(first); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %q", submiterr.ErrMalformedReadStructure, structure)
		}
		return n, nil
	}
	total, groups := 0, 0
	for i := 0; i < len(first); {
		if !isDigit(first[i]) {
			i++
			continue
		}
		j := i
		for j < len(first) && isDigit(first[j]) {
			j++
		}
		n, err := strconv.Atoi(first[i:j])
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", submiterr.ErrMalformedReadStructure, structure, err)
		}
		total += n
		groups++
		i = j
	}
	if groups == 0 {
		return 0, fmt.Errorf("%w: %q", submiterr.ErrMalformedReadStructure, structure)
	}
	return total, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
