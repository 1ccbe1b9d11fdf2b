package mailbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/replydraft/internal/model"
)

// AuthError indicates that the mail server rejected the credentials.
type AuthError struct {
	SourceType model.SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Source is read access to one mailbox.
type Source interface {
	// ReceivedSince returns the messages, with bodies, that arrived at
	// or after cutoff.
	ReceivedSince(ctx context.Context, cutoff time.Time) ([]model.Message, error)

	// Headers returns every message in the mailbox. Bodies may be empty.
	Headers(ctx context.Context) ([]model.Message, error)

	// Raw returns the complete RFC 5322 bytes of the message with the
	// given ID.
	Raw(ctx context.Context, id string) ([]byte, error)
}

// Presenter hands a composed draft to the mail client for review. It
// never sends the draft.
type Presenter interface {
	Present(ctx context.Context, draft *model.ReplyDraft) (string, error)
}

// Checker verifies that a source or presenter is reachable. The returned
// string is a human-readable status.
type Checker interface {
	Check(ctx context.Context) (string, error)
}

// filterSince keeps the messages received at or after cutoff.
func filterSince(msgs []model.Message, cutoff time.Time) []model.Message {
	kept := msgs[:0]
	for _, m := range msgs {
		if !m.ReceivedAt.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	return kept
}
