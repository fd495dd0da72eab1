package jobqueue

import "unicode/utf8"

const maxErrorLength = 1000

// RetryPolicy caps how often a row is attempted before it is failed for good.
type RetryPolicy struct {
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5}
}

// Exhausted reports whether a row with the given attempt count may not be tried again.
func (p RetryPolicy) Exhausted(attempts int) bool {
	max := p.MaxAttempts
	if max <= 0 {
		max = DefaultRetryPolicy().MaxAttempts
	}
	return attempts >= max
}

func errorText(err error) *string {
	msg := err.Error()
	msg = truncateUTF8(msg, maxErrorLength)
	return &msg
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
