package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/replydraft/internal/model"
)

// IMAPClient wraps go-imap v2 for connecting to and querying IMAP servers.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	tls      bool

	// tlsConfig is nil for the system roots.
	tlsConfig *tls.Config
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(
	host, port, username, password string, tls bool,
) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout/Close on the returned client.
func (c *IMAPClient) Connect(
	ctx context.Context,
) (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.host, c.port)

	var client *imapclient.Client
	var err error

	opts := &imapclient.Options{TLSConfig: c.tlsConfig}
	if c.tls {
		client, err = imapclient.DialTLS(addr, opts)
	} else {
		client, err = imapclient.DialStartTLS(addr, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	// Unblock pending commands if the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			SourceType: model.SourceTypeIMAP,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				c.username, err,
			),
		}
	}

	return client, nil
}

// IMAPSource reads one mailbox folder over IMAP. Each call opens its own
// connection.
type IMAPSource struct {
	client  *IMAPClient
	mailbox string
	logger  *log.Logger
}

// NewIMAPSource builds a source for cfg.Mailbox on the configured server.
func NewIMAPSource(
	cfg model.IMAPConfig, password string, logger *log.Logger,
) *IMAPSource {
	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &IMAPSource{
		client: NewIMAPClient(
			cfg.Host, cfg.Port, cfg.Username, password, cfg.TLS,
		),
		mailbox: mailbox,
		logger:  logger,
	}
}

// Check logs in and selects the mailbox.
func (s *IMAPSource) Check(ctx context.Context) (string, error) {
	client, err := s.client.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating email connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	data, err := client.Select(s.mailbox, nil).Wait()
	if err != nil {
		return "", fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}

	return fmt.Sprintf(
		"%s@%s: %s holds %d messages",
		s.client.username, s.client.host, s.mailbox, data.NumMessages,
	), nil
}

// ReceivedSince searches the mailbox for messages since the day before
// the cutoff's date, fetches them in full and keeps those whose internal
// date is at or after cutoff. SINCE compares dates in the server's zone
// with day granularity, so the search is widened by a day and the exact
// cutoff is applied client-side.
func (s *IMAPSource) ReceivedSince(
	ctx context.Context, cutoff time.Time,
) ([]model.Message, error) {
	client, err := s.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(s.mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		Since: cutoff.AddDate(0, 0, -1),
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages since %s: %w",
			criteria.Since.Format(time.DateOnly), err)
	}

	uids := searchData.AllUIDs()
	s.logger.Debug("imap search", "mailbox", s.mailbox,
		"since", cutoff.Format(time.DateTime), "matches", len(uids))
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		InternalDate: true,
		UID:          true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	var messages []model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			s.logger.Warn("skipping unreadable message", "err", err)
			continue
		}

		parsed := messageFromBuffer(buf)
		if raw := buf.FindBodySection(bodySection); raw != nil {
			body, err := ParseMessage(raw)
			if err != nil {
				s.logger.Warn("skipping undecodable body",
					"uid", buf.UID, "err", err)
			} else {
				parsed.Body = body.Body
				parsed.HTMLBody = body.HTMLBody
			}
		}
		messages = append(messages, parsed)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	return filterSince(messages, cutoff), nil
}

// Headers fetches envelope data for every message in the mailbox.
func (s *IMAPSource) Headers(ctx context.Context) ([]model.Message, error) {
	client, err := s.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(s.mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		InternalDate: true,
		UID:          true,
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	messages := make([]model.Message, 0, len(uids))
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			s.logger.Warn("skipping unreadable envelope", "err", err)
			continue
		}
		messages = append(messages, messageFromBuffer(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching envelopes: %w", err)
	}

	s.logger.Debug("imap headers", "mailbox", s.mailbox, "count", len(messages))
	return messages, nil
}

// Raw fetches the full message for the given UID.
func (s *IMAPSource) Raw(ctx context.Context, id string) ([]byte, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	client, err := s.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(s.mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", s.mailbox, err)
	}

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return raw, fmt.Errorf("closing fetch: %w", err)
	}

	return raw, nil
}

// messageFromBuffer extracts envelope fields from a FetchMessageBuffer.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer) model.Message {
	msg := model.Message{
		ID:         strconv.FormatUint(uint64(buf.UID), 10),
		ReceivedAt: buf.InternalDate,
	}

	if buf.Envelope != nil {
		msg.MessageID = buf.Envelope.MessageID
		msg.Subject = buf.Envelope.Subject
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = buf.Envelope.Date
		}

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			msg.SenderAddress = from.Addr()
			if from.Name != "" {
				msg.SenderName = from.Name
			} else {
				msg.SenderName = from.Addr()
			}
		}
	}

	return msg
}

// parseUID converts a string message ID to a uint32 UID.
func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message UID %q: %w", id, err)
	}
	return uint32(uid), nil
}
