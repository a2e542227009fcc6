package dmp

// levenshtein returns the edit distance between a and b, computed with the
// standard two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// similarity scores how alike a and b are on a 0..1 scale, 1 meaning
// identical. It is 1 - normalized Levenshtein distance.
func similarity(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// findMatch searches text for the best-scoring location of pattern, starting
// its search centered on expected and bounded to +/-maxDistance runes. It
// returns the best offset found and its similarity score; if pattern is
// empty it trivially matches at expected. Candidates below threshold are
// still returned so the caller can decide whether to accept them.
func findMatch(text, pattern []rune, expected, maxDistance int, threshold float64) (offset int, score float64, ok bool) {
	if len(pattern) == 0 {
		return clamp(expected, 0, len(text)), 1, true
	}

	lo := expected - maxDistance
	if lo < 0 {
		lo = 0
	}
	hi := expected + maxDistance
	if hi > len(text) {
		hi = len(text)
	}

	bestOffset := -1
	bestScore := -1.0

	for start := lo; start <= hi; start++ {
		end := start + len(pattern)
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]
		s := similarity(window, pattern)

		// Bias slightly toward candidates closer to the expected offset
		// when scores tie, matching bitap's distance-penalized scoring.
		if s > bestScore || (s == bestScore && abs(start-expected) < abs(bestOffset-expected)) {
			bestScore = s
			bestOffset = start
		}
	}

	if bestOffset < 0 || bestScore < threshold {
		return bestOffset, bestScore, false
	}
	return bestOffset, bestScore, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
