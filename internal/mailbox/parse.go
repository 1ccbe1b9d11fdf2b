package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/replydraft/internal/model"
)

// ParseMessage decodes a raw RFC 5322 message into a model.Message.
// ID and ReceivedAt are left for the caller when the source has better
// values (IMAP UID and internal date); ReceivedAt defaults to the Date
// header.
func ParseMessage(raw []byte) (model.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return model.Message{}, fmt.Errorf("reading message header: %w", err)
	}
	defer mr.Close()

	var msg model.Message

	h := mr.Header
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if id, err := h.MessageID(); err == nil {
		msg.MessageID = id
	}
	if date, err := h.Date(); err == nil {
		msg.ReceivedAt = date
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.SenderAddress = from[0].Address
		msg.SenderName = from[0].Name
		if msg.SenderName == "" {
			msg.SenderName = from[0].Address
		}
	}

	text, html := readBodies(mr)
	msg.Body = text
	msg.HTMLBody = html
	if msg.Body == "" && msg.HTMLBody != "" {
		msg.Body = stripHTML(msg.HTMLBody)
	}

	return msg, nil
}

// readBodies walks the MIME tree and returns the first text/plain and
// the first text/html inline parts. Attachments are skipped.
func readBodies(mr *mail.Reader) (textBody, htmlBody string) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF or a malformed part: keep what was read so far.
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// htmlBreakPattern matches tags that end a line of text, in any case.
var htmlBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|tr)\s*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := htmlBreakPattern.ReplaceAllString(html, "\n")
	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
