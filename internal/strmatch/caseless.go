package strmatch

// EqualFold compares two characters ignoring ASCII case. Characters outside
// the ASCII letters compare by value.
func EqualFold(a, b rune) bool {
	return lowerASCII(a) == lowerASCII(b)
}

func lowerASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func equalFoldGeneric(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if !EqualFold(rune(a[i]), rune(b[i])) {
			return false
		}
	}
	return true
}

func equalFoldBatched(a, b string) bool {
	n := len(a)
	if n != len(b) {
		return false
	}
	if n < 8 {
		return equalFoldGeneric(a, b)
	}
	x, y := bytesOf(a), bytesOf(b)
	i := 0
	for ; n-i >= 8; i += 8 {
		if lowerWord(word(x, i)) != lowerWord(word(y, i)) {
			return false
		}
	}
	if i < n {
		return lowerWord(word(x, n-8)) == lowerWord(word(y, n-8))
	}
	return true
}

// lowerWord folds every byte in 'A'..'Z' to lower case. Bytes with the high
// bit set are left alone.
func lowerWord(w uint64) uint64 {
	h := w & low7
	geA := h + (0x80-'A')*lsb
	gtZ := h + (0x80-'Z'-1)*lsb
	upper := (geA ^ gtZ) &^ w & msb
	return w | upper>>2
}
