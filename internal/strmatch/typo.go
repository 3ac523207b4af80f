package strmatch

import "math/bits"

func typoGeneric(a, b string) int {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	dist := len(long) - len(short)
	for i := 0; i < len(short); i++ {
		if short[i] != long[i] {
			dist++
		}
	}
	return dist
}

func typoBatched(a, b string) int {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	dist := len(long) - len(short)
	n := len(short)
	x, y := bytesOf(short), bytesOf(long)

	i := 0
	for ; n-i >= 8; i += 8 {
		dist += bits.OnesCount64(nonZeroBytes(word(x, i) ^ word(y, i)))
	}
	for ; i < n; i++ {
		if x[i] != y[i] {
			dist++
		}
	}
	return dist
}
