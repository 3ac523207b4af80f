package strmatch

var qwertyRows = [...]string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

type keyPos struct {
	row, col int
	ok       bool
}

var keyGrid [128]keyPos

func init() {
	for r, row := range qwertyRows {
		for c := 0; c < len(row); c++ {
			keyGrid[row[c]] = keyPos{row: r, col: c, ok: true}
		}
	}
}

func keyAt(r rune) keyPos {
	r = lowerASCII(r)
	if r < 0 || r >= rune(len(keyGrid)) {
		return keyPos{}
	}
	return keyGrid[r]
}

// KeyDistance returns the Manhattan distance between two letters on a
// QWERTY layout, ignoring case. ok is false when either rune is not a letter
// key.
func KeyDistance(a, b rune) (dist int, ok bool) {
	pa, pb := keyAt(a), keyAt(b)
	if !pa.ok || !pb.ok {
		return 0, false
	}
	return abs(pa.row-pb.row) + abs(pa.col-pb.col), true
}

// KeyboardTypoDistance is TypoDistance with substitutions between
// neighbouring keys forgiven.
func KeyboardTypoDistance(a, b string) int {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	dist := len(long) - len(short)
	for i := 0; i < len(short); i++ {
		if short[i] == long[i] {
			continue
		}
		if d, ok := KeyDistance(rune(short[i]), rune(long[i])); ok && d <= 1 {
			continue
		}
		dist++
	}
	return dist
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
