package identity

// Verhoeff checksum over decimal digit strings. The algorithm is built on the
// dihedral group D5 and detects all single-digit errors and all adjacent
// transpositions, which is why national ID schemes use it.
//
// Tables are the canonical multiplication (d), permutation (p), and inverse
// (inv) tables over digits 0-9.

var verhoeffD = [10][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

var verhoeffP = [8][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

var verhoeffInv = [10]int{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

// verhoeffValid reports whether the digit string, including its trailing check
// digit, has a Verhoeff checksum of zero. Non-digit input returns false.
func verhoeffValid(number string) bool {
	c := 0
	n := len(number)
	for i := 0; i < n; i++ {
		ch := number[n-1-i]
		if ch < '0' || ch > '9' {
			return false
		}
		c = verhoeffD[c][verhoeffP[i%8][ch-'0']]
	}
	return c == 0
}

// verhoeffCheckDigit computes the check digit for a base digit string, so that
// base+digit passes verhoeffValid. Used by tests and fixture generators.
func verhoeffCheckDigit(base string) (byte, bool) {
	c := 0
	n := len(base)
	for i := 0; i < n; i++ {
		ch := base[n-1-i]
		if ch < '0' || ch > '9' {
			return 0, false
		}
		c = verhoeffD[c][verhoeffP[(i+1)%8][ch-'0']]
	}
	return byte('0' + verhoeffInv[c]), true
}
