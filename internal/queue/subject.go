package queue

import "strings"

const defaultSource = "default"

// subjectFor builds "<base>.<source>". Characters that NATS treats as token
// separators or wildcards are replaced so a source always maps to one token.
func subjectFor(base, source string) string {
	if source == "" {
		return base + "." + defaultSource
	}
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, source)
	return base + "." + token
}
