package ui

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/five82/basket/internal/shop"
)

// truncate shortens a string to limit runes, adding an ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// shortID keeps the first segment of a UUID-style identifier.
func shortID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok && len(head) >= 6 {
		return head
	}
	return truncate(id, 10)
}

func formatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// formatAge renders how long ago t was, coarsely.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < 2*time.Second:
		return "just now"
	case d < time.Minute:
		return d.Truncate(time.Second).String() + " ago"
	case d < time.Hour:
		return d.Truncate(time.Minute).String() + " ago"
	default:
		return t.Local().Format("15:04")
	}
}

// opLabel capitalises an operation name for the status line.
func opLabel(op string) string {
	if op == "" {
		return ""
	}
	return strings.ToUpper(op[:1]) + op[1:]
}

// describeError turns an operation failure into one status line.
func describeError(err error) string {
	var verr *shop.ValidationError
	if errors.As(err, &verr) {
		return opLabel(verr.Op) + ": " + verr.Reason
	}
	var terr *shop.TransportError
	if errors.As(err, &terr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return opLabel(terr.Op) + " timed out. Try again."
		}
		return opLabel(terr.Op) + " failed. Try again."
	}
	return err.Error()
}

func clampRow(row, n int) int {
	if n <= 0 || row < 0 {
		return 0
	}
	if row >= n {
		return n - 1
	}
	return row
}

// visibleRange returns the window of rows [first, last) that keeps selected
// on screen when only height rows fit.
func visibleRange(selected, n, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	first := 0
	if selected >= height {
		first = selected - height + 1
	}
	return first, min(n, first+height)
}
