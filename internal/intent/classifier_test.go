package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		name      string
		utterance string
		want      Classification
	}{
		{
			name:      "plain question is faq",
			utterance: "How do I connect to the VPN?",
			want:      Classification{Intent: IntentFAQ},
		},
		{
			name:      "explicit ticket request",
			utterance: "Please create a ticket for my broken dock",
			want:      Classification{Intent: IntentCreateTicket},
		},
		{
			name:      "escalation request",
			utterance: "I want to escalate this to a human",
			want:      Classification{Intent: IntentCreateTicket},
		},
		{
			name:      "status check",
			utterance: "What is the status of ticket 42?",
			want:      Classification{Intent: IntentStatusQuery},
		},
		{
			name:      "list own tickets",
			utterance: "Show me my tickets",
			want:      Classification{Intent: IntentStatusQuery},
		},
		{
			name:      "ticket request wins over status phrasing",
			utterance: "Check status didn't help, open a ticket",
			want:      Classification{Intent: IntentCreateTicket, NegativeSignal: true},
		},
		{
			name:      "negative signal on faq phrasing",
			utterance: "That suggestion didn't work at all",
			want:      Classification{Intent: IntentFAQ, NegativeSignal: true},
		},
		{
			name:      "still broken variant",
			utterance: "the printer is still broken",
			want:      Classification{Intent: IntentFAQ, NegativeSignal: true},
		},
		{
			name:      "urgency marker",
			utterance: "URGENT: open a ticket, the server room is flooding",
			want:      Classification{Intent: IntentCreateTicket, Urgency: true},
		},
		{
			name:      "case insensitive matching",
			utterance: "This Is USELESS",
			want:      Classification{Intent: IntentFAQ, NegativeSignal: true},
		},
	}

	classifier := NewKeywordClassifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := classifier.Classify(context.Background(), tc.utterance, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
