package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArticles() []Article {
	return []Article{
		{
			ID:       "kb-vpn-001",
			Category: "network",
			Issue:    "VPN will not connect",
			Keywords: []string{"vpn", "tunnel"},
			Steps:    []string{"Restart the VPN client.", "Check your credentials."},
		},
		{
			ID:       "kb-printer-001",
			Category: "hardware",
			Issue:    "Printer not responding",
			Keywords: []string{"printer", "print"},
			Steps:    []string{"Power cycle the printer."},
		},
		{
			ID:       "kb-wifi-001",
			Category: "network",
			Issue:    "WiFi keeps dropping",
			Keywords: []string{"wifi", "wireless"},
			Steps:    []string{"Forget and rejoin the network."},
		},
		{
			ID:       "kb-net-001",
			Category: "network",
			Issue:    "No network connectivity",
			Keywords: []string{"network", "internet"},
			Steps:    []string{"Check the cable."},
		},
	}
}

func TestKeywordBaseLookup(t *testing.T) {
	base := NewKeywordBaseFromArticles(testArticles())
	ctx := context.Background()

	result, err := base.Lookup(ctx, "My VPN is not connecting")
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, "vpn", result.TopicKey)
	assert.Contains(t, result.Solution, "ISSUE: VPN will not connect")
	assert.Contains(t, result.Solution, "1. Restart the VPN client.")
	assert.Contains(t, result.Solution, "2. Check your credentials.")
}

func TestKeywordBaseLookupIsCaseInsensitive(t *testing.T) {
	base := NewKeywordBaseFromArticles(testArticles())

	result, err := base.Lookup(context.Background(), "PRINTER jammed again")
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, "printer", result.TopicKey)
}

func TestKeywordBaseLookupCapsAtTwoArticles(t *testing.T) {
	base := NewKeywordBaseFromArticles(testArticles())

	result, err := base.Lookup(context.Background(), "wifi and network and printer problems")
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, 2, strings.Count(result.Solution, "ISSUE:"))
}

func TestKeywordBaseLookupNotFound(t *testing.T) {
	base := NewKeywordBaseFromArticles(testArticles())

	result, err := base.Lookup(context.Background(), "quantum flux capacitor alignment")
	require.NoError(t, err)
	assert.Equal(t, NotFound, result)
	assert.False(t, result.Found)
}

func TestTopicKey(t *testing.T) {
	cases := map[string]string{
		"VPN":              "vpn",
		"  WiFi Dropping ": "wifi_dropping",
		"kb-vpn-001":       "kb-vpn-001",
		"two  words":       "two_words",
	}
	for raw, want := range cases {
		assert.Equal(t, want, TopicKey(raw))
	}
}
