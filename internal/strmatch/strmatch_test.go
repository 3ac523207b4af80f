package strmatch

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lengths straddling every word boundary the batched kernels use
var edgeLengths = []int{0, 1, 7, 8, 9, 15, 16, 17, 31, 32, 33, 63, 64, 65}

func pattern(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	return sb.String()
}

func flip(s string, i int) string {
	b := []byte(s)
	b[i] ^= 0x01
	return string(b)
}

func TestParseImpl(t *testing.T) {
	impl, ok := ParseImpl(" Batched ")
	require.True(t, ok)
	assert.Equal(t, Batched, impl)

	_, ok = ParseImpl("avx9000")
	assert.False(t, ok)
}

func TestUseRestores(t *testing.T) {
	before := Active()
	restore := Use(Generic)
	assert.Equal(t, Generic, Active())
	restore()
	assert.Equal(t, before, Active())
}

func TestEqual(t *testing.T) {
	forEachImpl(t, func(t *testing.T) {
		for _, n := range edgeLengths {
			s := pattern(n)
			assert.True(t, Equal(s, strings.Clone(s)), "len %d", n)
			for i := 0; i < n; i++ {
				assert.False(t, Equal(s, flip(s, i)), "len %d diff at %d", n, i)
			}
			assert.False(t, Equal(s, s+"x"), "len %d vs longer", n)
		}
	})
}

func TestPartialMatch(t *testing.T) {
	tests := []struct {
		part, whole string
		want        bool
	}{
		{"rust", "untrusting", true},
		{"crate", "socrates", true},
		{"crate", "diogenes", false},
		{"", "anything", true},
		{"", "", true},
		{"abc", "ab", false},
		{"lacus", "lacus", true},
		{"tail", "a very long sentence with the word at the tail", true},
		{"tailx", "a very long sentence with the word at the tail", false},
		{"aab", "aaaaaaaaaaaaaaaaaaaaaaaaaab", true},
		{"ééé", "caféééé", true},
	}
	forEachImpl(t, func(t *testing.T) {
		for _, tt := range tests {
			assert.Equal(t, tt.want, PartialMatch(tt.part, tt.whole), "%q in %q", tt.part, tt.whole)
		}
	})
}

func TestPartialMatchEveryOffset(t *testing.T) {
	forEachImpl(t, func(t *testing.T) {
		for _, n := range edgeLengths {
			whole := strings.Repeat("-", n)
			for at := 0; at+3 <= n; at++ {
				w := whole[:at] + "xyz" + whole[at+3:]
				assert.True(t, PartialMatch("xyz", w), "len %d at %d", n, at)
				assert.False(t, PartialMatch("xyq", w), "len %d at %d", n, at)
			}
		}
	})
}

func TestTypoDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"enim magnis lacus", "emin magnis lacus", 2},
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "abd", 1},
		{"abc", "abcdef", 3},
		{"abcdef", "abc", 3},
		{"lorem", "lorem", 0},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvwxyZ", 1},
	}
	forEachImpl(t, func(t *testing.T) {
		for _, tt := range tests {
			assert.Equal(t, tt.want, TypoDistance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		}
	})
}

func TestEqualFold(t *testing.T) {
	assert.True(t, EqualFold('a', 'A'))
	assert.True(t, EqualFold('Z', 'z'))
	assert.True(t, EqualFold('7', '7'))
	assert.False(t, EqualFold('@', '`'))
	assert.False(t, EqualFold('[', '{'))
	assert.False(t, EqualFold('é', 'É'))
	assert.True(t, EqualFold('é', 'é'))
}

func TestEqualFoldString(t *testing.T) {
	forEachImpl(t, func(t *testing.T) {
		assert.True(t, EqualFoldString("Hello World 123!", "hELLO wORLD 123!"))
		assert.False(t, EqualFoldString("@@@@@@@@@", "`````````"))
		assert.False(t, EqualFoldString("[[[[[[[[[", "{{{{{{{{{"))
		assert.False(t, EqualFoldString("short", "shorter"))
		for _, n := range edgeLengths {
			s := pattern(n)
			assert.True(t, EqualFoldString(s, strings.ToUpper(s)), "len %d", n)
		}
	})
}

func TestKeyDistance(t *testing.T) {
	tests := []struct {
		a, b rune
		want int
		ok   bool
	}{
		{'q', 'w', 1, true},
		{'q', 'p', 9, true},
		{'a', 'q', 1, true},
		{'Z', 'm', 6, true},
		{'g', 'G', 0, true},
		{'q', 'm', 8, true},
		{'1', 'a', 0, false},
		{'a', 'ß', 0, false},
	}
	for _, tt := range tests {
		got, ok := KeyDistance(tt.a, tt.b)
		assert.Equal(t, tt.ok, ok, "%q %q", tt.a, tt.b)
		assert.Equal(t, tt.want, got, "%q %q", tt.a, tt.b)
	}
}

func TestKeyboardTypoDistance(t *testing.T) {
	assert.Equal(t, 0, KeyboardTypoDistance("cat", "cst"))
	assert.Equal(t, 1, KeyboardTypoDistance("cat", "cpt"))
	assert.Equal(t, 2, KeyboardTypoDistance("cat", "cstle"))
}

func TestEqual128(t *testing.T) {
	forEachImpl(t, func(t *testing.T) {
		a := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
		b := a
		assert.True(t, Equal128(&a, &b))
		for i := range b {
			c := a
			c[i]++
			assert.False(t, Equal128(&a, &c), "byte %d", i)
		}
	})
}

func TestKernelsAgree(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	alphabet := "abAB -_@`[{"
	gen := func() string {
		n := edgeLengths[r.Intn(len(edgeLengths))]
		b := make([]byte, n)
		for i := range b {
			b[i] = alphabet[r.Intn(len(alphabet))]
		}
		return string(b)
	}

	for range 2000 {
		a, b := gen(), gen()
		part := a
		if len(a) > 3 {
			part = a[:r.Intn(4)]
		}
		require.Equal(t, equalGeneric(a, b), equalBatched(a, b), "Equal %q %q", a, b)
		require.Equal(t, containsGeneric(part, b), containsBatched(part, b), "PartialMatch %q %q", part, b)
		require.Equal(t, typoGeneric(a, b), typoBatched(a, b), "TypoDistance %q %q", a, b)
		require.Equal(t, equalFoldGeneric(a, b), equalFoldBatched(a, b), "EqualFoldString %q %q", a, b)
	}
}
