package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeMbox(t *testing.T, messages ...string) string {
	t.Helper()

	var buf bytes.Buffer
	for _, m := range messages {
		buf.WriteString("From sender@example.com Sun Oct 18 09:00:00 2026\n")
		buf.WriteString(strings.ReplaceAll(m, "\r\n", "\n"))
		buf.WriteString("\n")
	}

	path := filepath.Join(t.TempDir(), "inbox.mbox")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing mbox: %v", err)
	}
	return path
}

func TestMboxSource_Headers(t *testing.T) {
	src := NewMboxSource(writeMbox(t, plainMessage, multipartMessage), nil)

	msgs, err := src.Headers(context.Background())
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Headers() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "1" || msgs[1].ID != "2" {
		t.Errorf("IDs = %q, %q", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].Subject != "Submission of AD Letter Request" {
		t.Errorf("first subject = %q", msgs[0].Subject)
	}
}

func TestMboxSource_ReceivedSince(t *testing.T) {
	src := NewMboxSource(writeMbox(t, plainMessage, multipartMessage), nil)

	ist := time.FixedZone("IST", 5*3600+1800)
	cutoff := time.Date(2026, 10, 18, 9, 30, 0, 0, ist)

	msgs, err := src.ReceivedSince(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ReceivedSince() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "2" {
		t.Fatalf("ReceivedSince() = %+v, want only message 2", msgs)
	}

	atFirst := time.Date(2026, 10, 18, 9, 15, 0, 0, ist)
	msgs, err = src.ReceivedSince(context.Background(), atFirst)
	if err != nil {
		t.Fatalf("ReceivedSince() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("cutoff equal to a received time should include it, got %d", len(msgs))
	}
}

func TestMboxSource_Raw(t *testing.T) {
	src := NewMboxSource(writeMbox(t, plainMessage, multipartMessage), nil)

	raw, err := src.Raw(context.Background(), "1")
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if !bytes.Contains(raw, []byte("Contract Name: Gold-100")) {
		t.Errorf("Raw() = %q", raw)
	}

	if _, err := src.Raw(context.Background(), "9"); err == nil {
		t.Error("expected error for unknown message")
	}
}

func TestMboxSource_MissingFile(t *testing.T) {
	src := NewMboxSource(filepath.Join(t.TempDir(), "absent.mbox"), nil)
	if _, err := src.Headers(context.Background()); err == nil {
		t.Error("expected error for a missing mbox file")
	}
	if _, err := src.Check(context.Background()); err == nil {
		t.Error("expected Check() error for a missing mbox file")
	}
}

func TestDirDrafts_Present(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drafts")
	p := NewDirDrafts(dir, nil)

	path, err := p.Present(context.Background(), testDraft(t, ""))
	if err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("draft written to %s, want under %s", path, dir)
	}
	if want := "20261018_110000_Acme_42.eml"; filepath.Base(path) != want {
		t.Errorf("draft name = %q, want %q", filepath.Base(path), want)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading draft: %v", err)
	}
	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage(draft) error = %v", err)
	}
	if msg.HTMLBody != "<p>Dear Sir,</p>" {
		t.Errorf("draft HTMLBody = %q", msg.HTMLBody)
	}
}

func TestIsAuthError(t *testing.T) {
	err := &AuthError{SourceType: "imap", Message: "bad password"}
	wrapped := fmt.Errorf("checking: %w", err)

	if !IsAuthError(wrapped) {
		t.Error("IsAuthError() = false for wrapped AuthError")
	}
	if IsAuthError(errors.New("other")) {
		t.Error("IsAuthError() = true for unrelated error")
	}
}
