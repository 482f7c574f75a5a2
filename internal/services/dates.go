package services

import (
	"strconv"
	"strings"
	"time"
)

// isoMillisLayout keeps millisecond precision so a timestamp survives the
// millis -> ISO -> millis round trip that the stores put it through.
const isoMillisLayout = "2006-01-02T15:04:05.000Z07:00"

func isoFromMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillisLayout)
}

// isoFromMillisPtr returns nil for a zero timestamp so the column is set to
// NULL instead of the epoch.
func isoFromMillisPtr(ms int64) *string {
	if ms <= 0 {
		return nil
	}
	s := isoFromMillis(ms)
	return &s
}

func millisFromISO(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// normalizeMillis treats 10-digit values as seconds and 13-digit values as
// milliseconds; StoreKit2 payloads have shipped both over the years.
func normalizeMillis(n int64) int64 {
	if n > 0 && n < 1e12 {
		return n * 1000
	}
	return n
}

// receiptMillis parses the decimal-string epochs of the legacy verifyReceipt
// response. Absent or malformed values become zero.
func receiptMillis(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// isoFromRFC3339 re-normalizes a store-provided RFC3339 timestamp to the
// canonical layout, dropping values that do not parse.
func isoFromRFC3339(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	out := t.UTC().Format(isoMillisLayout)
	return &out
}
