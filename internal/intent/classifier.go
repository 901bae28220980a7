package intent

import (
	"context"
	"strings"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// Intent enumerates the routing intents the engine understands.
type Intent string

const (
	IntentFAQ          Intent = "faq"
	IntentCreateTicket Intent = "create_ticket"
	IntentStatusQuery  Intent = "status_query"
)

// Classification is the classifier's verdict for one utterance.
type Classification struct {
	Intent         Intent
	NegativeSignal bool
	Urgency        bool
}

// Classifier labels an utterance. History gives prior turns for
// context; implementations may ignore it.
type Classifier interface {
	Classify(ctx context.Context, utterance string, history []domain.Turn) (Classification, error)
}

// negativeSignals are phrases expressing that a previously offered
// solution failed.
var negativeSignals = []string{
	"didn't work", "doesn't work", "not working",
	"didn't help", "doesn't help",
	"still not", "still broken", "still having",
	"problem persists", "issue persists",
	"same error", "same problem",
	"not fixed", "not solved",
	"getting worse", "even worse",
	"this is useless", "waste of time",
}

var ticketKeywords = []string{
	"create ticket", "open ticket", "create a ticket", "open a ticket",
	"escalate", "speak to someone", "talk to support", "talk to a human",
}

var statusKeywords = []string{
	"my tickets", "ticket status", "check ticket",
	"ticket number", "open tickets", "check status", "status of",
}

var urgencyMarkers = []string{
	"urgent", "asap", "immediately", "critical", "emergency", "right now",
}

// KeywordClassifier is the in-process classifier: substring matching
// over fixed phrase lists, case-insensitive. Explicit ticket requests
// win over status checks; everything else is a knowledge question.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the keyword classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify labels the utterance from its phrasing alone.
func (c *KeywordClassifier) Classify(_ context.Context, utterance string, _ []domain.Turn) (Classification, error) {
	lower := strings.ToLower(utterance)

	result := Classification{
		Intent:         IntentFAQ,
		NegativeSignal: containsAny(lower, negativeSignals),
		Urgency:        containsAny(lower, urgencyMarkers),
	}

	switch {
	case containsAny(lower, ticketKeywords):
		result.Intent = IntentCreateTicket
	case containsAny(lower, statusKeywords):
		result.Intent = IntentStatusQuery
	}

	return result, nil
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
