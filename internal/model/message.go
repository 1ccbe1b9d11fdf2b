package model

import "time"

// SourceType identifies where inbox messages are read from.
type SourceType string

const (
	SourceTypeIMAP SourceType = "imap"
	SourceTypeMbox SourceType = "mbox"
)

// Message is the read-only view of one inbox message.
type Message struct {
	// ID is the message's identifier within its source
	// (IMAP UID or mbox position).
	ID string `json:"id"`

	// MessageID is the RFC 5322 Message-ID header, without angle brackets.
	MessageID string `json:"message_id"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// Body is the plain-text body. When the message carries only an
	// HTML part, Body holds the tag-stripped HTML.
	Body string `json:"body"`

	// HTMLBody is the text/html part, empty when the message has none.
	HTMLBody string `json:"html_body"`

	// SenderName is the display name of the first From address, or the
	// address itself when no display name is present.
	SenderName string `json:"sender_name"`

	// SenderAddress is the bare address of the first From address.
	SenderAddress string `json:"sender_address"`

	// ReceivedAt is when the message arrived in the mailbox.
	ReceivedAt time.Time `json:"received_at"`
}

// ReceivedOn reports whether the message arrived on the calendar day of
// day, evaluated in day's location.
func (m Message) ReceivedOn(day time.Time) bool {
	y1, m1, d1 := m.ReceivedAt.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
