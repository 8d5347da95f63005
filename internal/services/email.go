package services

import (
	"regexp"
	"strings"
)

var (
	emailFormat = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	blockedEmailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[a-z]{1,2}@`),
		regexp.MustCompile(`test@`),
		regexp.MustCompile(`fake@`),
		regexp.MustCompile(`temp@`),
		regexp.MustCompile(`@test\.`),
		regexp.MustCompile(`@fake\.`),
		regexp.MustCompile(`@temp\.`),
	}
)

// ValidateEmail checks an address against the registration policy and
// returns a message for the shopper, or "" when the address is acceptable.
func ValidateEmail(email string) string {
	if !emailFormat.MatchString(email) {
		return "Invalid email format"
	}

	local, domain, _ := strings.Cut(email, "@")
	if len(local) < 3 {
		return "Email username must be at least 3 characters"
	}
	if len(domain) < 5 {
		return "Invalid domain"
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) < 2 {
			return "Invalid domain format"
		}
	}

	lower := strings.ToLower(email)
	for _, pattern := range blockedEmailPatterns {
		if pattern.MatchString(lower) {
			return "Please use a valid email address"
		}
	}
	return ""
}
