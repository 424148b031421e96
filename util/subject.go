package util

import "strings"

// SubjectMatches reports whether subj matches a NATS subject pattern, where *
// matches exactly one token and a trailing > matches one or more.
func SubjectMatches(pattern, subj string) bool {
	if pattern == subj {
		return true
	}
	pat := strings.Split(pattern, ".")
	toks := strings.Split(subj, ".")
	for i, p := range pat {
		if p == ">" {
			return i == len(pat)-1 && len(toks) > i
		}
		if i >= len(toks) {
			return false
		}
		if p != "*" && p != toks[i] {
			return false
		}
	}
	return len(toks) == len(pat)
}
