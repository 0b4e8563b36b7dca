package subunit

import (
	"time"

	"github.com/cockroachdb/errors"
)

// timeLayouts covers the two forms the time: operand may take: with or
// without fractional microseconds, both a "YYYY-MM-DD HH:MM:SS[.ffffff]Z"
// UTC timestamp.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999Z",
	"2006-01-02 15:04:05Z",
}

// parseTimestamp parses the operand of a time: directive. An unparseable
// operand is reported as an error so the caller can pass the directive
// through instead of silently dropping it.
func parseTimestamp(operand string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, operand)
		if err == nil {
			return truncateToMicros(t), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, errors.Wrapf(firstErr, "invalid time operand %q", operand)
}

// FormatTimestamp renders t per the wire format: always six fractional
// digits, used by the encoder (subunitclient) for the symmetry contract.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000000Z")
}
