package strmatch

import "math/bits"

func containsGeneric(part, whole string) bool {
	m, n := len(part), len(whole)
	if m == 0 {
		return true
	}
outer:
	for i := 0; i+m <= n; i++ {
		for j := 0; j < m; j++ {
			if whole[i+j] != part[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

// containsBatched scans whole a word at a time for bytes equal to the first
// byte of part and verifies each candidate start with equalBatched. The zero
// byte test may flag extra bytes but never misses a real one.
func containsBatched(part, whole string) bool {
	m, n := len(part), len(whole)
	if m == 0 {
		return true
	}
	if m > n {
		return false
	}
	last := n - m
	first := uint64(part[0]) * lsb
	w := bytesOf(whole)

	i := 0
	for ; i+8 <= last+1; i += 8 {
		x := word(w, i) ^ first
		mask := (x - lsb) &^ x & msb
		for mask != 0 {
			j := i + bits.TrailingZeros64(mask)/8
			if equalBatched(whole[j:j+m], part) {
				return true
			}
			mask &= mask - 1
		}
	}
	for ; i <= last; i++ {
		if whole[i] == part[0] && equalBatched(whole[i:i+m], part) {
			return true
		}
	}
	return false
}
