package vocab

// Distance returns the Levenshtein edit distance between a and b, where
// insertion, deletion and substitution each cost 1. Strings are compared
// rune by rune and case-sensitively.
//
// The full (len(a)+1) x (len(b)+1) table is filled. Vocabularies are small
// bounded drug lists; a two-row variant would give the same results in
// O(min(len(a), len(b))) memory if that ever changes.
func Distance(a, b string) int {
	s := []rune(a)
	t := []rune(b)
	n, m := len(s), len(t)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
		}
	}
	return d[n][m]
}
