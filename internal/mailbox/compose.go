package mailbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/nhle/replydraft/internal/model"
)

// WriteDraft renders the draft as an RFC 5322 message: a multipart/mixed
// body holding the HTML part and, when present, the saved client reply
// as a message/rfc822 attachment. The message carries X-Unsent so that
// desktop clients open it as an editable draft.
func WriteDraft(w io.Writer, d *model.ReplyDraft) error {
	h, err := draftHeader(d)
	if err != nil {
		return err
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating draft writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating draft body: %w", err)
	}

	var th mail.InlineHeader
	th.Set("Content-Type", "text/html; charset=utf-8")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating html part: %w", err)
	}
	if _, err := io.WriteString(pw, d.HTMLBody); err != nil {
		return fmt.Errorf("writing html part: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing html part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing draft body: %w", err)
	}

	if d.HasAttachment() {
		if err := writeAttachment(mw, d.AttachmentPath); err != nil {
			return err
		}
	}

	return mw.Close()
}

func draftHeader(d *model.ReplyDraft) (mail.Header, error) {
	var h mail.Header

	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	h.SetDate(created)
	h.SetSubject(d.Subject)
	h.SetMessageID(uuid.NewString() + "@replydraft")
	h.Set("X-Unsent", "1")

	if d.From != "" {
		from, err := parseAddresses([]string{d.From})
		if err != nil {
			return h, fmt.Errorf("draft sender: %w", err)
		}
		h.SetAddressList("From", from)
	}

	to, err := parseAddresses(d.To)
	if err != nil {
		return h, fmt.Errorf("draft recipients: %w", err)
	}
	if len(to) > 0 {
		h.SetAddressList("To", to)
	}

	cc, err := parseAddresses(d.CC)
	if err != nil {
		return h, fmt.Errorf("draft cc: %w", err)
	}
	if len(cc) > 0 {
		h.SetAddressList("Cc", cc)
	}

	if id := d.Source.MessageID; id != "" {
		h.Set("In-Reply-To", "<"+id+">")
		h.Set("References", "<"+id+">")
	}

	return h, nil
}

func writeAttachment(mw *mail.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", path, err)
	}
	defer f.Close()

	var ah mail.AttachmentHeader
	ah.Set("Content-Type", "message/rfc822")
	ah.Set("Content-Transfer-Encoding", "8bit")
	ah.SetFilename(filepath.Base(path))

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment part: %w", err)
	}
	if _, err := io.Copy(aw, f); err != nil {
		return fmt.Errorf("writing attachment %s: %w", path, err)
	}
	return aw.Close()
}

// parseAddresses parses each entry, skipping blanks. Entries may hold
// several addresses separated by ';'.
func parseAddresses(entries []string) ([]*mail.Address, error) {
	var out []*mail.Address
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			addr, err := mail.ParseAddress(part)
			if err != nil {
				return nil, fmt.Errorf("parsing address %q: %w", part, err)
			}
			out = append(out, addr)
		}
	}
	return out, nil
}
