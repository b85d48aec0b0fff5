package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Differ aligns two line sequences. The result has one entry per line of a:
// the index of the matching line in b, or -1. Matches must be increasing.
type Differ func(a, b []string) []int

// LineDiff is the default Differ, built on diffmatchpatch's line mode.
func LineDiff(a, b []string) []int {
	match := make([]int, len(a))
	for i := range match {
		match[i] = -1
	}
	if len(a) == 0 || len(b) == 0 {
		return match
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	chars1, chars2, lineArray := dmp.DiffLinesToChars(strings.Join(a, ""), strings.Join(b, ""))
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	i, j := 0, 0
	for _, d := range diffs {
		n := len(SplitLines([]byte(d.Text)))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for k := 0; k < n; k++ {
				match[i+k] = j + k
			}
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			i += n
		case diffmatchpatch.DiffInsert:
			j += n
		}
	}
	return match
}

// SplitLines splits data into lines, keeping each line's terminator.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var lines []string
	s := string(data)
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}
