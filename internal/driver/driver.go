// Package driver runs the interactive prompt loop: it asks for a cutoff
// time and client names, then drafts a reply for every submission that
// mentions one of the clients.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/replydraft/internal/archive"
	"github.com/nhle/replydraft/internal/cutoff"
	"github.com/nhle/replydraft/internal/mailbox"
	"github.com/nhle/replydraft/internal/model"
	"github.com/nhle/replydraft/internal/reply"
	"github.com/nhle/replydraft/internal/sheet"
)

// ExitSentinel ends the loop when entered at any prompt (any case).
const ExitSentinel = "exit"

// ErrExit signals that the operator asked to leave.
var ErrExit = errors.New("exit requested")

const (
	timePrompt   = "Enter start time (HH:MM) or type 'exit' to quit"
	clientPrompt = "Please provide client names (comma-separated) or type 'exit' to quit"
)

// Settings are the file locations and subject the driver works with.
type Settings struct {
	// SheetDir and SheetPattern locate the client spreadsheet.
	SheetDir     string
	SheetPattern string

	// OutputDir is the base directory of the per-run dated folders.
	OutputDir string

	// Subject is the submission subject prefix.
	Subject string
}

// Options wires the driver's collaborators.
type Options struct {
	Source   mailbox.Source
	Drafts   mailbox.Presenter
	Lookup   *sheet.Lookup
	Composer *reply.Composer
	Prompter Prompter
	Console  *Console
	Logger   *log.Logger
	Settings Settings

	// Now defaults to time.Now.
	Now func() time.Time
}

// Driver runs the prompt loop.
type Driver struct {
	source   mailbox.Source
	drafts   mailbox.Presenter
	lookup   *sheet.Lookup
	composer *reply.Composer
	prompter Prompter
	console  *Console
	logger   *log.Logger
	settings Settings
	now      func() time.Time
}

// New returns a Driver for opts.
func New(opts Options) *Driver {
	d := &Driver{
		source:   opts.Source,
		drafts:   opts.Drafts,
		lookup:   opts.Lookup,
		composer: opts.Composer,
		prompter: opts.Prompter,
		console:  opts.Console,
		logger:   opts.Logger,
		settings: opts.Settings,
		now:      opts.Now,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard)
	}
	if d.console == nil {
		d.console = NewConsole(io.Discard)
	}
	if d.settings.Subject == "" {
		d.settings.Subject = model.DefaultSubmissionSubject
	}
	if d.settings.SheetPattern == "" {
		d.settings.SheetPattern = model.DefaultSheetPattern
	}
	return d
}

// Iteration is one pass of the loop. Now is read once when the
// iteration starts and used for every date and file name in it.
type Iteration struct {
	Now     time.Time
	Cutoff  time.Time
	Clients []string

	// Folder is the run's dated output folder.
	Folder string
}

// Result summarizes one iteration.
type Result struct {
	// Messages is the number of messages received after the cutoff.
	Messages int

	// Matches counts (submission, client) pairs found.
	Matches int

	Drafts []*model.ReplyDraft
}

// Run creates the run's dated folder and loops over prompts until the
// operator exits. Errors from the mailbox, spreadsheet or file system
// end the run.
func (d *Driver) Run(ctx context.Context) error {
	started := d.now()

	folder, created, err := archive.RunFolder(d.settings.OutputDir, started)
	if err != nil {
		return err
	}
	if created {
		d.console.Info("Folder '%s' created successfully.", folder)
	} else {
		d.console.Info("Folder '%s' already exists.", folder)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := d.now()
		d.console.Rule()

		cut, err := d.askCutoff(now)
		if errors.Is(err, ErrExit) {
			d.console.Info("Exiting the program. Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		d.console.Info("Start DateTime: %s", cut.Format("02/01/2006 15:04"))

		clients, err := d.askClients()
		if errors.Is(err, ErrExit) {
			d.console.Info("Exiting the program. Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		d.console.Info("Client Name : %s", strings.Join(clients, ", "))

		if _, err := d.Process(ctx, Iteration{
			Now:     now,
			Cutoff:  cut,
			Clients: clients,
			Folder:  folder,
		}); err != nil {
			return err
		}
	}
}

func isExit(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), ExitSentinel)
}

// askCutoff prompts until a valid HH:MM time or the exit sentinel is
// entered.
func (d *Driver) askCutoff(now time.Time) (time.Time, error) {
	for {
		input, err := d.prompter.Ask(timePrompt)
		if err != nil {
			return time.Time{}, err
		}
		if isExit(input) {
			return time.Time{}, ErrExit
		}

		cut, err := cutoff.Parse(input, now)
		if err != nil {
			d.logger.Debug("rejected time", "input", input, "err", err)
			d.console.Error("Invalid time format! Please provide time in HH:MM format (e.g., 13:45).")
			continue
		}
		return cut, nil
	}
}

// askClients prompts until at least one client name or the exit
// sentinel is entered.
func (d *Driver) askClients() ([]string, error) {
	for {
		input, err := d.prompter.Ask(clientPrompt)
		if err != nil {
			return nil, err
		}
		if isExit(input) {
			return nil, ErrExit
		}

		names := reply.ParseClientNames(input)
		if len(names) == 0 {
			d.console.Error("No names provided! Please enter at least one client name.")
			continue
		}
		return names, nil
	}
}

// Process drafts a reply for every submission received after it.Cutoff
// whose body mentions one of it.Clients. At most one draft is produced
// per (message, client) pair.
func (d *Driver) Process(ctx context.Context, it Iteration) (*Result, error) {
	workbook, err := sheet.LatestFile(d.settings.SheetDir, d.settings.SheetPattern)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("using spreadsheet", "path", workbook)

	msgs, err := d.source.ReceivedSince(ctx, it.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("fetching messages after %s: %w",
			it.Cutoff.Format(time.DateTime), err)
	}

	res := &Result{Messages: len(msgs)}
	if len(msgs) == 0 {
		d.console.Warn("No emails found in your inbox after the specified start time: %s",
			it.Cutoff.Format("15:04"))
		return res, nil
	}

	st := &iterationState{
		it:       it,
		workbook: workbook,
		saved:    make(map[string]string),
		drafted:  make(map[string]bool),
	}

	for _, msg := range msgs {
		if !reply.IsSubmission(msg, d.settings.Subject) {
			continue
		}
		for _, client := range it.Clients {
			if !reply.Mentions(msg, client) {
				continue
			}

			key := msg.ID + "\x00" + client
			if st.drafted[key] {
				continue
			}
			st.drafted[key] = true
			res.Matches++

			draft, err := d.draft(ctx, st, msg, client)
			if err != nil {
				return res, err
			}
			res.Drafts = append(res.Drafts, draft)
		}
	}

	if res.Matches == 0 {
		d.console.Warn("No emails found matching the subject '%s' or any of the provided client names.",
			d.settings.Subject)
	}

	return res, nil
}

// iterationState holds what one Process call shares between drafts.
type iterationState struct {
	it       Iteration
	workbook string

	// inbox is loaded on first use.
	inbox []model.Message
	// saved maps a reply's message ID to its saved file.
	saved map[string]string
	// drafted holds the (message, client) pairs already handled.
	drafted map[string]bool
}

func (d *Driver) draft(
	ctx context.Context, st *iterationState, msg model.Message, client string,
) (*model.ReplyDraft, error) {
	d.console.Info("Found email for client name '%s'.", client)

	fields := reply.ExtractFields(msg.Body)

	table, rec, err := d.lookup.ClientTable(st.workbook, client)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		d.console.Warn("No row for '%s' in %s.", client, st.workbook)
	} else {
		d.logger.Debug("client row", "client", client, "row", rec.Row, "name", rec.Name)
	}

	attachment, err := d.attachLatestReply(ctx, st, client)
	if err != nil {
		return nil, err
	}

	draft, err := d.composer.Compose(msg, client, fields, table, attachment, st.it.Now)
	if err != nil {
		return nil, err
	}

	where, err := d.drafts.Present(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("presenting draft for %q: %w", client, err)
	}

	d.console.Success("Draft email prepared for %s and client name '%s' (%s).",
		msg.SenderName, client, where)
	return draft, nil
}

// attachLatestReply saves the client's latest same-day reply into the
// run folder and returns its path, or "" when there is none.
func (d *Driver) attachLatestReply(
	ctx context.Context, st *iterationState, client string,
) (string, error) {
	if st.inbox == nil {
		inbox, err := d.source.Headers(ctx)
		if err != nil {
			return "", fmt.Errorf("scanning inbox for replies: %w", err)
		}
		if inbox == nil {
			inbox = []model.Message{}
		}
		st.inbox = inbox
	}

	latest := reply.FindLatest(st.inbox, d.settings.Subject, client, st.it.Now)
	if latest == nil {
		d.console.Warn("No reply email found from '%s' for today's date. Skipping attachment.", client)
		return "", nil
	}

	if path, ok := st.saved[latest.ID]; ok {
		return path, nil
	}

	raw, err := d.source.Raw(ctx, latest.ID)
	if err != nil {
		return "", fmt.Errorf("fetching reply %s: %w", latest.ID, err)
	}

	path, err := archive.SaveReply(st.it.Folder, client, st.it.Now, raw)
	if err != nil {
		return "", err
	}
	st.saved[latest.ID] = path

	d.logger.Debug("saved reply", "client", client, "path", path,
		"received", latest.ReceivedAt.Format(time.DateTime))
	return path, nil
}
