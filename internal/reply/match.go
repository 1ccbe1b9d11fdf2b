// Package reply matches submission messages to clients, finds the
// client's latest same-day reply and composes the reply draft.
package reply

import (
	"regexp"
	"strings"
	"time"

	"github.com/nhle/replydraft/internal/model"
)

// NotAvailable stands in for a field missing from the submission body.
const NotAvailable = "N/A"

// Fields are the values extracted from a submission body.
type Fields struct {
	ContractName string
	Quantity     string
}

var (
	contractNamePattern = regexp.MustCompile(`(?i)Contract Name[ \t]*[:-][ \t]*(.*)`)
	quantityPattern     = regexp.MustCompile(`(?i)Quantity[ \t]*[:-][ \t]*(.*)`)
)

// ExtractFields reads "Contract Name : value" and "Quantity : value"
// lines from body. The separator may be ':' or '-'. Missing or blank
// values become NotAvailable.
func ExtractFields(body string) Fields {
	return Fields{
		ContractName: extract(contractNamePattern, body),
		Quantity:     extract(quantityPattern, body),
	}
}

func extract(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return NotAvailable
	}
	// (.*) stops at '\n'; a CRLF body leaves the '\r' behind.
	v := strings.TrimSpace(m[1])
	if v == "" {
		return NotAvailable
	}
	return v
}

// IsSubmission reports whether msg's subject starts with subject.
// The comparison is case-sensitive.
func IsSubmission(msg model.Message, subject string) bool {
	return strings.HasPrefix(msg.Subject, subject)
}

// Mentions reports whether msg's body contains client. The comparison is
// case-sensitive.
func Mentions(msg model.Message, client string) bool {
	return client != "" && strings.Contains(msg.Body, client)
}

// ReplyPrefix is the lower-cased subject prefix of a client's reply to a
// submission: "re: <subject> - <client>".
func ReplyPrefix(subject, client string) string {
	return strings.ToLower("re: " + subject + " - " + client)
}

// FindLatest returns the message in msgs whose subject starts with the
// reply prefix for client (case-insensitively), that was received on
// now's calendar day, and that has the latest received time. It returns
// nil when none qualifies.
func FindLatest(msgs []model.Message, subject, client string, now time.Time) *model.Message {
	prefix := ReplyPrefix(subject, client)

	var latest *model.Message
	for i := range msgs {
		m := &msgs[i]
		if !strings.HasPrefix(strings.ToLower(m.Subject), prefix) {
			continue
		}
		if !m.ReceivedOn(now) {
			continue
		}
		if latest == nil || m.ReceivedAt.After(latest.ReceivedAt) {
			latest = m
		}
	}
	return latest
}

// ParseClientNames splits comma-separated input into trimmed, non-empty,
// de-duplicated names in input order.
func ParseClientNames(input string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(input, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
