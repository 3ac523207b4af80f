package strmatch

func equalGeneric(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalBatched(a, b string) bool {
	n := len(a)
	if n != len(b) {
		return false
	}
	if n < 8 {
		return equalGeneric(a, b)
	}
	return equalWords(bytesOf(a), bytesOf(b))
}

// equalWords compares two equal-length slices of at least 8 bytes, taking
// the widest step the remaining length allows and finishing with one
// overlapping word.
func equalWords(x, y []byte) bool {
	n := len(x)
	i := 0
	for ; n-i >= 32; i += 32 {
		if word(x, i) != word(y, i) ||
			word(x, i+8) != word(y, i+8) ||
			word(x, i+16) != word(y, i+16) ||
			word(x, i+24) != word(y, i+24) {
			return false
		}
	}
	if n-i >= 16 {
		if word(x, i) != word(y, i) || word(x, i+8) != word(y, i+8) {
			return false
		}
		i += 16
	}
	if n-i >= 8 {
		if word(x, i) != word(y, i) {
			return false
		}
		i += 8
	}
	if i < n {
		return word(x, n-8) == word(y, n-8)
	}
	return true
}

func equal128Generic(a, b *[16]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equal128Batched(a, b *[16]byte) bool {
	return word(a[:], 0) == word(b[:], 0) && word(a[:], 8) == word(b[:], 8)
}
