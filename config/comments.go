package config

import "strings"

// stripLineComments removes a trailing "//…" from each line, unless the
// "//" falls inside a string literal (a "//" counts as outside a string
// when the text before it holds an even number of quotes). Like
// original_source/midi_router.py's load_config comment handling, it does
// not understand escaped quotes.
func stripLineComments(doc []byte) []byte {
	lines := strings.Split(string(doc), "\n")
	for i, line := range lines {
		start := 0
		for {
			idx := strings.Index(line[start:], "//")
			if idx == -1 {
				break
			}
			idx += start
			before := line[:idx]
			if strings.Count(before, `"`)%2 == 0 {
				lines[i] = before
				break
			}
			start = idx + 2
		}
	}
	return []byte(strings.Join(lines, "\n"))
}
