package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// invoiceAlphabet excludes I, O, 0 and 1 so printed invoices stay legible.
// 32 characters divides 256 evenly, so byte-mod sampling is unbiased.
const invoiceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const invoiceSuffixLen = 6

// GenerateInvoiceNumber returns a customer-facing code of the form
// PREFIX-YYYYMMDD-XXXXXX with a high-entropy suffix. Uniqueness is enforced
// by the orders table; callers retry with a fresh number on conflict.
func GenerateInvoiceNumber(prefix string, now time.Time) string {
	var buf [invoiceSuffixLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("invoice entropy: %v", err))
	}
	for i := range buf {
		buf[i] = invoiceAlphabet[int(buf[i])%len(invoiceAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), buf[:])
}
