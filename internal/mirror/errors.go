package mirror

import "errors"

var (
	// ErrWebhookConfigMissing indicates the public webhook root address or
	// the shared secret is not configured. Registration cannot proceed
	// without both.
	ErrWebhookConfigMissing = errors.New("webhook root address or secret not configured")

	// ErrCloneInProgress indicates another clone already holds the
	// collection; concurrent clones of the same collection are refused
	// rather than queued.
	ErrCloneInProgress = errors.New("clone already in progress for collection")

	// ErrBadPayload indicates an upstream or webhook body that does not
	// parse as the expected JSON document shape.
	ErrBadPayload = errors.New("malformed document payload")
)
