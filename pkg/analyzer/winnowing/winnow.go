package winnowing

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/winnow/pkg/token"
)

// KGrams returns the hash of every run of k consecutive tokens. The hash
// covers the concatenated token values; types and offsets do not
// participate. Fewer than k tokens yield no hashes.
func KGrams(tokens []token.Token, k int) []uint64 {
	if k < 1 || len(tokens) < k {
		return nil
	}
	hashes := make([]uint64, len(tokens)-k+1)
	d := xxhash.New()
	for i := range hashes {
		d.Reset()
		for _, t := range tokens[i : i+k] {
			d.WriteString(t.Val)
		}
		hashes[i] = d.Sum64()
	}
	return hashes
}

// Winnow selects positions from hashes using robust winnowing over windows
// of w hashes: in every window the minimum hash is selected, the rightmost
// one on ties, and a position is only emitted again once it has left the
// window. Positions are returned in increasing order.
func Winnow(hashes []uint64, w int) []int {
	if w < 1 {
		w = 1
	}
	buf := make([]uint64, w)
	pos := make([]int, w)
	for i := range buf {
		buf[i] = math.MaxUint64
	}

	var selected []int
	r, min := 0, 0
	for i, h := range hashes {
		r = (r + 1) % w
		buf[r] = h
		pos[r] = i

		if min == r {
			// The previous minimum fell out of the window: rescan it.
			for j := (r - 1 + w) % w; j != r; j = (j - 1 + w) % w {
				if buf[j] < buf[min] {
					min = j
				}
			}
			selected = append(selected, pos[min])
		} else if buf[r] < buf[min] {
			min = r
			selected = append(selected, pos[min])
		}
	}
	return selected
}

// Fingerprints returns the winnowed k-gram hashes of tokens for guarantee
// threshold t: any run of at least t tokens shared by two files yields at
// least one shared fingerprint.
func Fingerprints(tokens []token.Token, k, t int) []uint64 {
	hashes := KGrams(tokens, k)
	if len(hashes) == 0 {
		return nil
	}
	positions := Winnow(hashes, t-k+1)
	out := make([]uint64, len(positions))
	for i, p := range positions {
		out[i] = hashes[p]
	}
	return out
}
