package dedup

import "strings"

// Similarity returns Dice's coefficient over the adjacent-character pairs of
// a and b, compared case-insensitively. Identical strings score 1; any other
// pair where either string is shorter than two characters scores 0.
//
// Each bigram of a can be matched at most once, so a repeated bigram in b
// cannot inflate the score.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	if string(ra) == string(rb) {
		if len(ra) == 0 {
			return 0
		}
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	pairs := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		pairs[[2]rune{ra[i], ra[i+1]}]++
	}

	matches := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := [2]rune{rb[i], rb[i+1]}
		if pairs[bg] > 0 {
			pairs[bg]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(len(ra)+len(rb)-2)
}
