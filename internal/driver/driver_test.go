package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nhle/replydraft/internal/model"
	"github.com/nhle/replydraft/internal/reply"
	"github.com/nhle/replydraft/internal/sheet"
)

var testNow = time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)

type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Ask(title string) (string, error) {
	p.asked = append(p.asked, title)
	if len(p.answers) == 0 {
		return "", ErrExit
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

type fakeSource struct {
	received   []model.Message
	inbox      []model.Message
	raw        map[string][]byte
	err        error
	rawCalls   int
	headerHits int
	lastCutoff time.Time
}

func (s *fakeSource) ReceivedSince(_ context.Context, cutoff time.Time) ([]model.Message, error) {
	s.lastCutoff = cutoff
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Message
	for _, m := range s.received {
		if !m.ReceivedAt.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeSource) Headers(context.Context) ([]model.Message, error) {
	s.headerHits++
	return s.inbox, nil
}

func (s *fakeSource) Raw(_ context.Context, id string) ([]byte, error) {
	s.rawCalls++
	raw, ok := s.raw[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return raw, nil
}

type fakePresenter struct {
	drafts []*model.ReplyDraft
}

func (p *fakePresenter) Present(_ context.Context, d *model.ReplyDraft) (string, error) {
	p.drafts = append(p.drafts, d)
	return "drafts/" + d.Client, nil
}

type fakeSheet struct {
	sheet *sheet.Sheet
}

func (f fakeSheet) ActiveSheet(string) (*sheet.Sheet, error) {
	return f.sheet, nil
}

func clientSheet() *sheet.Sheet {
	return &sheet.Sheet{
		Name: "TRQ",
		Rows: [][]sheet.Cell{
			{{Text: "Sr"}, {Text: "TRQ Holders Name"}, {Text: "Limit"}},
			{{Number: 1, Numeric: true}, {Text: "Acme"}, {Number: 1500, Numeric: true}},
		},
	}
}

type fixture struct {
	driver    *Driver
	source    *fakeSource
	presenter *fakePresenter
	out       *bytes.Buffer
	outDir    string
}

func newFixture(t *testing.T, src *fakeSource, answers ...string) (*fixture, *scriptedPrompter) {
	t.Helper()

	sheetDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(sheetDir, "clients.xlsx"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	prompter := &scriptedPrompter{answers: answers}
	presenter := &fakePresenter{}
	out := &bytes.Buffer{}

	d := New(Options{
		Source:   src,
		Drafts:   presenter,
		Lookup:   sheet.NewLookup(fakeSheet{sheet: clientSheet()}, 2),
		Composer: reply.NewComposer(model.ReplyConfig{From: "ops@example.com", Team: "Ops"}),
		Prompter: prompter,
		Console:  NewConsole(out),
		Settings: Settings{
			SheetDir:  sheetDir,
			OutputDir: outDir,
		},
		Now: func() time.Time { return testNow },
	})

	return &fixture{
		driver:    d,
		source:    src,
		presenter: presenter,
		out:       out,
		outDir:    outDir,
	}, prompter
}

func submission(id, body string, at time.Time) model.Message {
	return model.Message{
		ID:         id,
		Subject:    model.DefaultSubmissionSubject + " for October",
		Body:       body,
		SenderName: "Ravi",
		ReceivedAt: at,
	}
}

func TestRun_DraftsOnePerMessageAndClient(t *testing.T) {
	src := &fakeSource{
		received: []model.Message{
			submission("1", "Acme\nContract Name: C-9\nQuantity: 10 kg\nAcme again", testNow.Add(-time.Hour)),
			submission("2", "nothing relevant", testNow.Add(-time.Hour)),
			{ID: "3", Subject: "Lunch", Body: "Acme", ReceivedAt: testNow.Add(-time.Hour)},
		},
		inbox: []model.Message{
			{ID: "10", Subject: "RE: " + model.DefaultSubmissionSubject + " - Acme", ReceivedAt: testNow.Add(-2 * time.Hour)},
			{ID: "11", Subject: "re: " + model.DefaultSubmissionSubject + " - acme", ReceivedAt: testNow.Add(-time.Hour)},
		},
		raw: map[string][]byte{"11": []byte("Subject: reply\r\n\r\nok\r\n")},
	}
	f, _ := newFixture(t, src, "09:00", "Acme, Acme, Beta", "exit")

	if err := f.driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.presenter.drafts) != 1 {
		t.Fatalf("drafts = %d, want 1", len(f.presenter.drafts))
	}
	d := f.presenter.drafts[0]
	if d.Client != "Acme" || d.Source.ID != "1" {
		t.Errorf("draft = (%q, %q), want (Acme, 1)", d.Client, d.Source.ID)
	}
	if !strings.Contains(d.HTMLBody, "C-9") || !strings.Contains(d.HTMLBody, "1500.00") {
		t.Errorf("body missing fields or table:\n%s", d.HTMLBody)
	}

	want := filepath.Join(f.outDir, "20261018", "Acme_2026_10_18_11_00_00.eml")
	if d.AttachmentPath != want {
		t.Errorf("AttachmentPath = %q, want %q", d.AttachmentPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("saved reply missing: %v", err)
	}
	if src.rawCalls != 1 {
		t.Errorf("Raw calls = %d, want 1", src.rawCalls)
	}

	wantCutoff := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	if !src.lastCutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", src.lastCutoff, wantCutoff)
	}
}

func TestRun_RepromptsInvalidTime(t *testing.T) {
	f, p := newFixture(t, &fakeSource{}, "25:00", "9:00", "10:15", "Acme", "EXIT")

	if err := f.driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := strings.Count(f.out.String(), "Invalid time format!"); got != 2 {
		t.Errorf("invalid time messages = %d, want 2", got)
	}
	if !strings.Contains(f.out.String(), "No emails found in your inbox after the specified start time: 10:15") {
		t.Errorf("missing empty-inbox warning:\n%s", f.out.String())
	}
	if len(p.asked) != 5 {
		t.Errorf("prompts = %d, want 5", len(p.asked))
	}
}

func TestRun_RepromptsEmptyClients(t *testing.T) {
	f, _ := newFixture(t, &fakeSource{}, "10:00", " , ,", "exit")

	if err := f.driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(f.out.String(), "No names provided!") {
		t.Errorf("missing empty-names message:\n%s", f.out.String())
	}
	if !strings.Contains(f.out.String(), "Goodbye") {
		t.Errorf("missing goodbye:\n%s", f.out.String())
	}
}

func TestRun_ExitImmediately(t *testing.T) {
	f, _ := newFixture(t, &fakeSource{}, "Exit")

	if err := f.driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.outDir, "20261018")); err != nil {
		t.Errorf("run folder missing: %v", err)
	}
	if len(f.presenter.drafts) != 0 {
		t.Errorf("drafts = %d, want 0", len(f.presenter.drafts))
	}
}

func TestProcess_NoReplySkipsAttachment(t *testing.T) {
	src := &fakeSource{
		received: []model.Message{submission("1", "Acme", testNow)},
		inbox: []model.Message{
			// Yesterday's reply does not count.
			{ID: "9", Subject: "RE: " + model.DefaultSubmissionSubject + " - Acme", ReceivedAt: testNow.AddDate(0, 0, -1)},
		},
	}
	f, _ := newFixture(t, src)

	res, err := f.driver.Process(context.Background(), Iteration{
		Now:     testNow,
		Cutoff:  testNow.Add(-time.Hour),
		Clients: []string{"Acme"},
		Folder:  f.outDir,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if res.Matches != 1 || len(res.Drafts) != 1 {
		t.Fatalf("result = %+v, want one draft", res)
	}
	if res.Drafts[0].HasAttachment() {
		t.Errorf("draft has attachment %q", res.Drafts[0].AttachmentPath)
	}
	if src.rawCalls != 0 {
		t.Errorf("Raw calls = %d, want 0", src.rawCalls)
	}
	if !strings.Contains(f.out.String(), "Skipping attachment") {
		t.Errorf("missing skip warning:\n%s", f.out.String())
	}
}

func TestProcess_UnknownClientUsesPlaceholder(t *testing.T) {
	src := &fakeSource{received: []model.Message{submission("1", "Zeta Corp", testNow)}}
	f, _ := newFixture(t, src)

	res, err := f.driver.Process(context.Background(), Iteration{
		Now:     testNow,
		Cutoff:  testNow.Add(-time.Hour),
		Clients: []string{"Zeta"},
		Folder:  f.outDir,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(res.Drafts) != 1 {
		t.Fatalf("drafts = %d, want 1", len(res.Drafts))
	}
	if !strings.Contains(res.Drafts[0].HTMLBody, sheet.NotFoundHTML) {
		t.Errorf("body missing placeholder:\n%s", res.Drafts[0].HTMLBody)
	}
}

func TestProcess_NoMatchesWarns(t *testing.T) {
	src := &fakeSource{received: []model.Message{submission("1", "Beta", testNow)}}
	f, _ := newFixture(t, src)

	res, err := f.driver.Process(context.Background(), Iteration{
		Now:     testNow,
		Cutoff:  testNow.Add(-time.Hour),
		Clients: []string{"Acme"},
		Folder:  f.outDir,
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Matches != 0 {
		t.Errorf("Matches = %d, want 0", res.Matches)
	}
	if !strings.Contains(f.out.String(), "No emails found matching the subject") {
		t.Errorf("missing no-match warning:\n%s", f.out.String())
	}
	if src.headerHits != 0 {
		t.Errorf("Headers calls = %d, want 0", src.headerHits)
	}
}

func TestProcess_MissingSpreadsheet(t *testing.T) {
	f, _ := newFixture(t, &fakeSource{})
	f.driver.settings.SheetDir = t.TempDir()

	_, err := f.driver.Process(context.Background(), Iteration{
		Now:     testNow,
		Cutoff:  testNow,
		Clients: []string{"Acme"},
		Folder:  f.outDir,
	})
	if !errors.Is(err, sheet.ErrNoSpreadsheet) {
		t.Fatalf("Process() error = %v, want ErrNoSpreadsheet", err)
	}
}

func TestRun_SourceErrorEndsRun(t *testing.T) {
	boom := errors.New("connection reset")
	f, _ := newFixture(t, &fakeSource{err: boom}, "10:00", "Acme")

	err := f.driver.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
}
