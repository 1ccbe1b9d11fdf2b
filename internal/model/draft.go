package model

import "time"

// ReplyDraft is a composed reply that has not been sent.
type ReplyDraft struct {
	// Client is the client name the draft was composed for.
	Client string `json:"client"`

	// Source is the submission message being replied to.
	Source Message `json:"source"`

	// From is the sender address written on the draft. Empty leaves it
	// to the mail client.
	From string `json:"from"`

	// To and CC are the fixed recipient lists.
	To []string `json:"to"`
	CC []string `json:"cc"`

	// Subject is the reply subject ("RE: " + the source subject).
	Subject string `json:"subject"`

	// HTMLBody is the full composed HTML body.
	HTMLBody string `json:"html_body"`

	// AttachmentPath is the saved copy of the client's latest same-day
	// reply. Empty when no reply was found.
	AttachmentPath string `json:"attachment_path,omitempty"`

	// CreatedAt is the timestamp of the iteration that produced the draft.
	CreatedAt time.Time `json:"created_at"`
}

// HasAttachment reports whether the draft carries a saved reply.
func (d *ReplyDraft) HasAttachment() bool {
	return d.AttachmentPath != ""
}
