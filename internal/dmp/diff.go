package dmp

// op identifies whether a diff span is unchanged, deleted from a, or
// inserted from b.
type op int8

const (
	opEqual op = iota
	opDelete
	opInsert
)

type span struct {
	op   op
	text []rune
}

// Diff computes an ordered list of hunks transforming a into b. For
// identical inputs it returns an empty slice. The result is deterministic:
// identical (a, b) always yield byte-identical output.
func Diff(a, b string) []Hunk {
	ra, rb := []rune(a), []rune(b)
	spans := diffRunes(ra, rb)
	spans = cleanupMerge(spans)
	return hunksFromSpans(spans, ra)
}

// diffRunes runs the Myers shortest-edit-script algorithm, trimming common
// prefixes/suffixes first since that's the dominant case for text editing.
func diffRunes(a, b []rune) []span {
	origA := a

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	aRest, bRest := a[prefix:], b[prefix:]

	suffix := 0
	for suffix < len(aRest) && suffix < len(bRest) && aRest[len(aRest)-1-suffix] == bRest[len(bRest)-1-suffix] {
		suffix++
	}
	aMid := aRest[:len(aRest)-suffix]
	bMid := bRest[:len(bRest)-suffix]

	var spans []span
	if prefix > 0 {
		spans = append(spans, span{opEqual, cloneRunes(origA[:prefix])})
	}
	spans = append(spans, myers(aMid, bMid)...)
	if suffix > 0 {
		spans = append(spans, span{opEqual, cloneRunes(aRest[len(aRest)-suffix:])})
	}
	return spans
}

func cloneRunes(r []rune) []rune {
	out := make([]rune, len(r))
	copy(out, r)
	return out
}

// myers computes the shortest edit script between a and b using the classic
// O(ND) greedy algorithm, returning a sequence of equal/delete/insert spans.
func myers(a, b []rune) []span {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		return []span{{opInsert, cloneRunes(b)}}
	}
	if m == 0 {
		return []span{{opDelete, cloneRunes(a)}}
	}

	max := n + m
	size := 2*max + 1
	vs := make([][]int, 0, max+1)
	v := make([]int, size)
	offset := max

	found := -1
found:
	for d := 0; d <= max; d++ {
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				found = d
				break
			}
		}

		// Snapshot v as it stands after this iteration's updates: the
		// backtrack pass reads trace[d] using the same values the forward
		// pass just wrote for d.
		snapshot := make([]int, size)
		copy(snapshot, v)
		vs = append(vs, snapshot)

		if found >= 0 {
			break found
		}
	}

	if found < 0 {
		// Should not happen: d never exceeds max.
		found = max
	}

	return backtrack(a, b, vs, found, offset)
}

// backtrack walks the recorded V arrays from the end back to the origin,
// emitting spans in forward order.
func backtrack(a, b []rune, vs [][]int, d, offset int) []span {
	x, y := len(a), len(b)
	type step struct {
		op   op
		fromX, fromY int
	}
	var steps []step

	for ; d > 0; d-- {
		v := vs[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			steps = append(steps, step{opEqual, x - 1, y - 1})
			x--
			y--
		}

		if x == prevX {
			steps = append(steps, step{opInsert, x, prevY})
			y = prevY
		} else {
			steps = append(steps, step{opDelete, prevX, y})
			x = prevX
		}
	}
	for x > 0 && y > 0 {
		steps = append(steps, step{opEqual, x - 1, y - 1})
		x--
		y--
	}

	// steps were appended walking backward; reverse and materialize spans,
	// merging consecutive same-op single-rune steps.
	var spans []span
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		var r rune
		switch s.op {
		case opEqual, opDelete:
			r = a[s.fromX]
		case opInsert:
			r = b[s.fromY]
		}
		if len(spans) > 0 && spans[len(spans)-1].op == s.op {
			spans[len(spans)-1].text = append(spans[len(spans)-1].text, r)
		} else {
			spans = append(spans, span{s.op, []rune{r}})
		}
	}
	return spans
}

// cleanupMerge merges adjacent spans of the same operation and drops
// zero-length spans; it is the semantic-cleanup pass referenced by §4.1.
func cleanupMerge(spans []span) []span {
	var out []span
	for _, s := range spans {
		if len(s.text) == 0 {
			continue
		}
		if len(out) > 0 && out[len(out)-1].op == s.op {
			out[len(out)-1].text = append(out[len(out)-1].text, s.text...)
			continue
		}
		out = append(out, s)
	}
	return out
}

// hunksFromSpans walks the span list and emits one Hunk per contiguous
// delete/insert run, carrying up to patchMargin runes of context on either
// side and recording the run's start offset in the pre-image (a).
func hunksFromSpans(spans []span, a []rune) []Hunk {
	var hunks []Hunk
	pos := 0 // position in a

	for i := 0; i < len(spans); i++ {
		s := spans[i]
		if s.op != opEqual {
			runStart := pos
			var del, ins []rune
			for i < len(spans) && spans[i].op != opEqual {
				switch spans[i].op {
				case opDelete:
					del = append(del, spans[i].text...)
					pos += len(spans[i].text)
				case opInsert:
					ins = append(ins, spans[i].text...)
				}
				i++
			}
			i-- // compensate for outer loop increment

			before := contextBefore(a, runStart, patchMargin)
			after := contextAfter(a, runStart+len(del), patchMargin)

			hunks = append(hunks, Hunk{
				ContextBefore: string(before),
				ContextAfter:  string(after),
				DeleteText:    string(del),
				InsertText:    string(ins),
				ApproxOffset:  runStart,
			})
			continue
		}
		pos += len(s.text)
	}
	return hunks
}

func contextBefore(a []rune, pos, n int) []rune {
	start := pos - n
	if start < 0 {
		start = 0
	}
	return a[start:pos]
}

func contextAfter(a []rune, pos, n int) []rune {
	end := pos + n
	if end > len(a) {
		end = len(a)
	}
	if pos > len(a) {
		pos = len(a)
	}
	return a[pos:end]
}
