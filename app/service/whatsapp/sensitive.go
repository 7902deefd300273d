package whatsapp

import (
	"regexp"
	"strings"
)

var sensitiveKeywords = []string{
	"bank", "transfer", "account", "payment", "invoice",
	"contract", "legal", "deadline", "urgent", "asap",
	"money", "credit", "debit", "loan", "pin",
	"otp", "code", "password",
}

var (
	currencyPattern    = regexp.MustCompile(`[₦$€£¥]`)
	largeNumberPattern = regexp.MustCompile(`\b\d{4,}\b`)
)

// IsSensitive flags messages that should be reviewed before a reply is sent:
// financial or credential vocabulary, currency symbols, or long digit runs.
func IsSensitive(message string) bool {
	if message == "" {
		return false
	}

	text := strings.ToLower(message)

	for _, word := range sensitiveKeywords {
		if strings.Contains(text, word) {
			return true
		}
	}

	if currencyPattern.MatchString(text) {
		return true
	}

	return largeNumberPattern.MatchString(text)
}
