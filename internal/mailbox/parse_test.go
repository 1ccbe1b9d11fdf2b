package mailbox

import (
	"strings"
	"testing"
	"time"
)

const plainMessage = "From: Acme Ops <ops@acme.example>\r\n" +
	"To: desk@example.com\r\n" +
	"Subject: Submission of AD Letter Request\r\n" +
	"Date: Sun, 18 Oct 2026 09:15:00 +0530\r\n" +
	"Message-ID: <sub-1@acme.example>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Client: Acme\r\n" +
	"Contract Name: Gold-100\r\n" +
	"Quantity: 50\r\n"

const multipartMessage = "From: bob@beta.example\r\n" +
	"Subject: =?utf-8?q?Re=3A_Submission_of_AD_Letter_Request_-_Beta?=\r\n" +
	"Date: Sun, 18 Oct 2026 10:00:00 +0530\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Approved.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Approved.</p>\r\n" +
	"--XYZ--\r\n"

const htmlOnlyMessage = "From: carol@gamma.example\r\n" +
	"Subject: Hello\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<div>Contract Name: Silver&amp;Co</div><div>Quantity: 7</div>\r\n"

func TestParseMessage_Plain(t *testing.T) {
	msg, err := ParseMessage([]byte(plainMessage))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if msg.Subject != "Submission of AD Letter Request" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.MessageID != "sub-1@acme.example" {
		t.Errorf("MessageID = %q", msg.MessageID)
	}
	if msg.SenderName != "Acme Ops" || msg.SenderAddress != "ops@acme.example" {
		t.Errorf("sender = %q <%s>", msg.SenderName, msg.SenderAddress)
	}
	want := time.Date(2026, 10, 18, 9, 15, 0, 0, time.FixedZone("", 5*3600+1800))
	if !msg.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", msg.ReceivedAt, want)
	}
	if !strings.Contains(msg.Body, "Contract Name: Gold-100") {
		t.Errorf("Body = %q", msg.Body)
	}
	if msg.HTMLBody != "" {
		t.Errorf("HTMLBody = %q, want empty", msg.HTMLBody)
	}
}

func TestParseMessage_Multipart(t *testing.T) {
	msg, err := ParseMessage([]byte(multipartMessage))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if msg.Subject != "Re: Submission of AD Letter Request - Beta" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.SenderName != "bob@beta.example" {
		t.Errorf("SenderName = %q, want the address", msg.SenderName)
	}
	if strings.TrimSpace(msg.Body) != "Approved." {
		t.Errorf("Body = %q", msg.Body)
	}
	if !strings.Contains(msg.HTMLBody, "<p>Approved.</p>") {
		t.Errorf("HTMLBody = %q", msg.HTMLBody)
	}
}

func TestParseMessage_HTMLOnlyFallsBackToStrippedText(t *testing.T) {
	msg, err := ParseMessage([]byte(htmlOnlyMessage))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	want := "Contract Name: Silver&Co\nQuantity: 7"
	if msg.Body != want {
		t.Errorf("Body = %q, want %q", msg.Body, want)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"entities", "a &lt;b&gt; &quot;c&quot;", `a <b> "c"`},
		{"collapse blank lines", "x<br><br><br><br>y", "x\n\ny"},
		{"upper case paragraphs", "<P>Contract Name: X</P><P>Quantity: 50</P>", "Contract Name: X\nQuantity: 50"},
		{"mixed case breaks", "a<BR>b<Br />c</DIV >d", "a\nb\nc\nd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.in); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
