package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeSubject(t *testing.T) {
	a := AnonymizeSubject("jane@example.com", "203.0.113.7", "secret-1")
	b := AnonymizeSubject("jane@example.com", "203.0.113.7", "secret-1")
	assert.Equal(t, a, b, "same inputs must be deterministic")

	assert.NotEqual(t, a, AnonymizeSubject("jane@example.com", "203.0.113.7", "secret-2"))
	assert.NotEqual(t, a, AnonymizeSubject("jane@example.com", "198.51.100.1", "secret-1"))
	assert.NotEqual(t, a, AnonymizeSubject("john@example.com", "203.0.113.7", "secret-1"))

	// one-way: the identifier never leaks the subject
	assert.NotContains(t, a, "jane")
	assert.Len(t, a, 64)
	assert.Equal(t, strings.ToLower(a), a)
}

func TestHashWording(t *testing.T) {
	sum := sha256.Sum256([]byte(OrderConsentWording))
	require.Equal(t, hex.EncodeToString(sum[:]), HashWording(OrderConsentWording))

	// copy edits produce a different audit hash
	require.NotEqual(t, HashWording(OrderConsentWording), HashWording(OrderConsentWording+" (v2)"))
}

func TestNewConsentRecord(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c := NewConsentRecord("jane@example.com", ConsentOrderProcessing,
		OrderConsentWording, "203.0.113.7", "curl/8.0", "secret-1", now)

	require.NotEmpty(t, c.ID)
	assert.Equal(t, ConsentOrderProcessing, c.ConsentType)
	assert.Equal(t, AnonymizeSubject("jane@example.com", "203.0.113.7", "secret-1"), c.AnonymizedIdentifier)
	assert.Equal(t, HashWording(OrderConsentWording), c.WordingHash)
	assert.Equal(t, "203.0.113.7", c.IPAddress)
	assert.Equal(t, "curl/8.0", c.UserAgent)
	assert.Equal(t, now, c.ConsentedAt)
}
