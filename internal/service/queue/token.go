package queue

import "fmt"

// FormatToken renders a token code: the doctor's prefix letter followed by a
// zero-padded sequence number, e.g. S001. Sequence numbers above 999 widen
// naturally rather than wrapping.
func FormatToken(prefix byte, seq int) string {
	return fmt.Sprintf("%c%03d", prefix, seq)
}
