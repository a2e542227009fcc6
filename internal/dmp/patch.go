package dmp

// Apply applies hunks to text in order, returning the patched text and one
// success flag per hunk. A hunk whose context cannot be located even after
// the fuzzy search fails silently — its flag is false and the surrounding
// hunks still apply; patch application never aborts partway.
func Apply(text string, hunks []Hunk, opts Options) (string, []bool) {
	opts = opts.withDefaults()
	rtext := []rune(text)
	results := make([]bool, len(hunks))

	// delta tracks how much earlier hunks have shifted positions in rtext
	// relative to the offsets recorded against the original pre-image.
	delta := 0

	for i, h := range hunks {
		before := []rune(h.ContextBefore)
		del := []rune(h.DeleteText)
		after := []rune(h.ContextAfter)
		pattern := make([]rune, 0, len(before)+len(del)+len(after))
		pattern = append(pattern, before...)
		pattern = append(pattern, del...)
		pattern = append(pattern, after...)

		expected := h.ApproxOffset - len(before) + delta

		start, ok := exactMatch(rtext, pattern, expected)
		if !ok {
			start, _, ok = findMatch(rtext, pattern, clamp(expected, 0, len(rtext)), opts.MatchDistance, opts.MatchThreshold)
		}
		if !ok {
			results[i] = false
			continue
		}

		delStart := clamp(start+len(before), 0, len(rtext))
		delEnd := clamp(delStart+len(del), 0, len(rtext))

		insert := []rune(h.InsertText)
		patched := make([]rune, 0, len(rtext)-(delEnd-delStart)+len(insert))
		patched = append(patched, rtext[:delStart]...)
		patched = append(patched, insert...)
		patched = append(patched, rtext[delEnd:]...)

		delta += len(patched) - len(rtext)
		rtext = patched
		results[i] = true
	}

	return string(rtext), results
}

func exactMatch(text, pattern []rune, expected int) (int, bool) {
	if expected < 0 || expected+len(pattern) > len(text) {
		return 0, false
	}
	for i, r := range pattern {
		if text[expected+i] != r {
			return 0, false
		}
	}
	return expected, true
}
