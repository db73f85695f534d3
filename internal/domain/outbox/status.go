package outbox

// Status tracks an outbox message through delivery
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	// StatusFailed is terminal; the poller stops retrying the message.
	StatusFailed Status = "FAILED"
)

// Terminal reports whether the poller is done with a message in this status
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusFailed
}
