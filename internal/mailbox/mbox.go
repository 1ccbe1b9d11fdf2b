package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	mboxlib "github.com/emersion/go-mbox"

	"github.com/nhle/replydraft/internal/model"
)

// MboxSource reads an exported mailbox file. The file is re-read on
// every call so that messages appended by the mail client between
// prompts are seen. Message IDs are 1-based positions in the file.
type MboxSource struct {
	path   string
	logger *log.Logger
}

// NewMboxSource builds a source for the mbox file at path.
func NewMboxSource(path string, logger *log.Logger) *MboxSource {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &MboxSource{path: path, logger: logger}
}

type mboxEntry struct {
	msg model.Message
	raw []byte
}

func (s *MboxSource) load(ctx context.Context) ([]mboxEntry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)

	var entries []mboxEntry
	for idx := 1; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading mbox message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return nil, fmt.Errorf("reading mbox message %d: %w", idx, err)
		}

		msg, err := ParseMessage(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable message", "index", idx, "err", err)
			continue
		}
		msg.ID = strconv.Itoa(idx)
		entries = append(entries, mboxEntry{msg: msg, raw: raw})
	}

	s.logger.Debug("mbox loaded", "path", s.path, "messages", len(entries))
	return entries, nil
}

// ReceivedSince returns the messages dated at or after cutoff.
func (s *MboxSource) ReceivedSince(
	ctx context.Context, cutoff time.Time,
) ([]model.Message, error) {
	msgs, err := s.Headers(ctx)
	if err != nil {
		return nil, err
	}
	return filterSince(msgs, cutoff), nil
}

// Headers returns every message in the file, bodies included.
func (s *MboxSource) Headers(ctx context.Context) ([]model.Message, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, e.msg)
	}
	return msgs, nil
}

// Raw returns the bytes of the message at the given position.
func (s *MboxSource) Raw(ctx context.Context, id string) ([]byte, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.msg.ID == id {
			return e.raw, nil
		}
	}
	return nil, fmt.Errorf("message %s not found in %s", id, s.path)
}

// Check verifies the file can be read.
func (s *MboxSource) Check(ctx context.Context) (string, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s holds %d messages", s.path, len(entries)), nil
}
