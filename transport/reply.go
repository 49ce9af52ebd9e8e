package transport

import "regexp"

// replyMatches reports whether the reply code appears in expected. The code
// is used as the pattern and the expected list as the subject, so "250"
// matches "220,250" and also anything else containing it. A code that isn't
// a valid pattern never matches.
func replyMatches(code string, expected string) bool {
	if code == "" {
		return false
	}
	re, err := regexp.Compile(code)
	if err != nil {
		return false
	}
	return re.MatchString(expected)
}
