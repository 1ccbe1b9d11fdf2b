package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/replydraft/internal/archive"
	"github.com/nhle/replydraft/internal/model"
)

// IMAPDrafts presents drafts by appending them to the server's drafts
// folder with the \Draft flag, where any mail client shows them for
// review.
type IMAPDrafts struct {
	client *IMAPClient
	folder string
	logger *log.Logger
}

// NewIMAPDrafts builds a presenter for cfg.Drafts on the configured server.
func NewIMAPDrafts(
	cfg model.IMAPConfig, password string, logger *log.Logger,
) *IMAPDrafts {
	folder := cfg.Drafts
	if folder == "" {
		folder = "Drafts"
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &IMAPDrafts{
		client: NewIMAPClient(
			cfg.Host, cfg.Port, cfg.Username, password, cfg.TLS,
		),
		folder: folder,
		logger: logger,
	}
}

// Present appends the rendered draft and returns the folder name.
func (p *IMAPDrafts) Present(
	ctx context.Context, draft *model.ReplyDraft,
) (string, error) {
	var buf bytes.Buffer
	if err := WriteDraft(&buf, draft); err != nil {
		return "", fmt.Errorf("rendering draft: %w", err)
	}

	client, err := p.client.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Logout().Wait() }()

	if err := p.ensureMailbox(client); err != nil {
		return "", err
	}

	if err := appendMessage(client, p.folder, buf.Bytes(), draft); err != nil {
		return "", fmt.Errorf("appending draft to %s: %w", p.folder, err)
	}

	p.logger.Debug("draft appended", "folder", p.folder,
		"subject", draft.Subject, "size", buf.Len())
	return p.folder, nil
}

func appendMessage(
	client *imapclient.Client, folder string, raw []byte, draft *model.ReplyDraft,
) error {
	opts := &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft, imap.FlagSeen},
	}
	if !draft.CreatedAt.IsZero() {
		opts.Time = draft.CreatedAt
	}

	cmd := client.Append(folder, int64(len(raw)), opts)

	remaining := raw
	for len(remaining) > 0 {
		n, err := cmd.Write(remaining)
		if err != nil {
			_ = cmd.Close()
			return fmt.Errorf("append write: %w", err)
		}
		if n == 0 {
			_ = cmd.Close()
			return fmt.Errorf("append write: wrote 0 bytes")
		}
		remaining = remaining[n:]
	}

	if err := cmd.Close(); err != nil {
		return fmt.Errorf("append close: %w", err)
	}

	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("append wait: %w", err)
	}

	return nil
}

func (p *IMAPDrafts) ensureMailbox(client *imapclient.Client) error {
	err := client.Create(p.folder, nil).Wait()
	if err == nil {
		p.logger.Info("imap mailbox created", "mailbox", p.folder)
		return nil
	}

	var respErr *imap.Error
	if errors.As(err, &respErr) && respErr.Code == imap.ResponseCodeAlreadyExists {
		return nil
	}
	return fmt.Errorf("ensure mailbox %s: %w", p.folder, err)
}

// Check logs in to the drafts server.
func (p *IMAPDrafts) Check(ctx context.Context) (string, error) {
	client, err := p.client.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Logout().Wait() }()
	return fmt.Sprintf("drafts go to %s", p.folder), nil
}

// DirDrafts presents drafts by writing them as .eml files, which desktop
// mail clients open as editable messages.
type DirDrafts struct {
	dir    string
	logger *log.Logger
}

// NewDirDrafts builds a presenter writing into dir.
func NewDirDrafts(dir string, logger *log.Logger) *DirDrafts {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DirDrafts{dir: dir, logger: logger}
}

// Present writes the draft and returns the file path.
func (p *DirDrafts) Present(
	_ context.Context, draft *model.ReplyDraft,
) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating drafts directory %s: %w", p.dir, err)
	}

	name := fmt.Sprintf("%s_%s_%s.eml",
		draft.CreatedAt.Format("20060102_150405"),
		archive.SafeName(draft.Client),
		archive.SafeName(draft.Source.ID),
	)
	path := filepath.Join(p.dir, name)

	var buf bytes.Buffer
	if err := WriteDraft(&buf, draft); err != nil {
		return "", fmt.Errorf("rendering draft: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing draft %s: %w", path, err)
	}

	p.logger.Debug("draft written", "path", path, "subject", draft.Subject)
	return path, nil
}

// Check reports the drafts directory.
func (p *DirDrafts) Check(context.Context) (string, error) {
	return fmt.Sprintf("drafts go to %s", p.dir), nil
}
