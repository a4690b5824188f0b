package logger

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail keeps the first two characters of the local part and the
// domain: "ann.lee@example.com" becomes "an***@example.com". A local part of
// two characters or fewer is masked entirely.
func RedactEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// RedactName keeps the initial of each word: "Ann Lee" becomes "A*** L***".
func RedactName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = string([]rune(w)[:1]) + "***"
	}
	return strings.Join(words, " ")
}

// redactField masks a log value by its key. Subscriber emails and names
// are masked outright; any other value has embedded addresses masked.
func redactField(key, val string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "email"):
		return RedactEmail(val)
	case key == "name" || (strings.HasSuffix(key, "_name") && key != "file_name"):
		return RedactName(val)
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}
