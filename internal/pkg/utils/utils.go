package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lagos is the business timezone (WAT, UTC+1, no DST).
var Lagos = time.FixedZone("WAT", 60*60)

// GenerateUUID generates a UUID v4 string.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateReference builds a gateway reference of the form
// PREFIX-<base36 unix millis>-<6 random chars>, upper-cased.
func GenerateReference(prefix string) string {
	if prefix == "" {
		prefix = "REF"
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s", prefix, ts, RandomCode(6)))
}

// RandomCode generates a random alphanumeric code of given length.
func RandomCode(length int) string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, length)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		b[i] = charset[n.Int64()]
	}
	return string(b)
}

// FormatNumber adds comma separators to a number.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var result strings.Builder
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	if neg {
		return "-" + result.String()
	}
	return result.String()
}

// FormatPrice renders an amount in kobo as whole naira, e.g. ₦15,000.
func FormatPrice(kobo int64) string {
	return "₦" + FormatNumber(kobo/100)
}

// scheduleLayouts are the accepted forms of a requested session time.
// Layouts without a zone are read as Lagos time.
var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 03:04 PM",
	"2006-01-02 3:04 PM",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseSchedule parses a requested session time. An empty string yields nil.
func ParseSchedule(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range scheduleLayouts {
		t, err := time.ParseInLocation(layout, strings.ToUpper(raw), Lagos)
		if err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("unrecognized schedule %q", raw)
}

// FormatSchedule renders a session time in Lagos time, e.g.
// "Monday, 4 May 2026 at 10:00 AM". Nil yields an empty string.
func FormatSchedule(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(Lagos).Format("Monday, 2 January 2006 at 03:04 PM")
}
