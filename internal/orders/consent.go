package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type ConsentType string

const (
	ConsentOrderProcessing ConsentType = "order_processing"
	ConsentMarketing       ConsentType = "marketing"
	ConsentAnalytics       ConsentType = "analytics"
)

// OrderConsentWording is the exact PDPA text shown to the customer at
// checkout. Only its hash is persisted, so later copy edits cannot
// retroactively alter the audit trail.
const OrderConsentWording = "I consent to the processing of my personal data for order fulfillment."

// AnonymizeSubject derives the stored identifier from the subject, the
// client IP and a process secret. The subject is never stored in the clear.
func AnonymizeSubject(subject, ip, secret string) string {
	sum := sha256.Sum256([]byte(subject + ip + secret))
	return hex.EncodeToString(sum[:])
}

func HashWording(wording string) string {
	sum := sha256.Sum256([]byte(wording))
	return hex.EncodeToString(sum[:])
}

// NewConsentRecord builds the audit entry for a given consent. A declined or
// absent consent produces no record at all.
func NewConsentRecord(subject string, typ ConsentType, wording, ip, userAgent, secret string, now time.Time) *ConsentRecord {
	return &ConsentRecord{
		ID:                   uuid.NewString(),
		ConsentType:          typ,
		AnonymizedIdentifier: AnonymizeSubject(subject, ip, secret),
		WordingHash:          HashWording(wording),
		IPAddress:            ip,
		UserAgent:            userAgent,
		ConsentedAt:          now,
	}
}
