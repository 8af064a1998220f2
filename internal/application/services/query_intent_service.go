package services

import (
	"regexp"
	"strings"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

// IntentKeywords is the site-operator keyword configuration used by ClassifyIntent.
// Matching is a case-insensitive substring test against the whole query.
type IntentKeywords struct {
	Navigational  []string
	Transactional []string
}

// DefaultIntentKeywords returns the keyword lists shipped with the plugin.
func DefaultIntentKeywords() IntentKeywords {
	return IntentKeywords{
		Navigational:  []string{"contact", "about", "login", "team", "location", "careers", "sign in", "address"},
		Transactional: []string{"buy", "download", "order", "hire", "price", "quote", "book", "subscribe"},
	}
}

var informationalPrefix = regexp.MustCompile(`(?i)^(how|what|why|when|where|can|should|is|are|do|does|will)\b`)

// ClassifyIntent maps a query to an intent. Rules are checked in order and the
// first match wins: navigational keyword, question prefix, transactional
// keyword, then general.
func ClassifyIntent(query string, keywords IntentKeywords) entities.Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entities.IntentGeneral
	}

	if containsAny(q, keywords.Navigational) {
		return entities.IntentNavigational
	}
	if informationalPrefix.MatchString(q) {
		return entities.IntentInformational
	}
	if containsAny(q, keywords.Transactional) {
		return entities.IntentTransactional
	}
	return entities.IntentGeneral
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
