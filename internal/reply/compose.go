package reply

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/nhle/replydraft/internal/model"
)

const bodyTemplate = `<p>Dear Sir,</p>
<p>&nbsp;</p>
<p>Kindly allow us to use your digital sign for signing the AD Bank letter, your DSC is available with us, details as mentioned below.</p>
<ul>
<li><strong>Contract Name:</strong> {{.Fields.ContractName}}</li>
<li><strong>Quantity:</strong> {{.Fields.Quantity}}</li>
</ul>
<p>&nbsp;</p>
{{.Table}}
<p>Regards,<br>{{.Team}}</p>
{{- if .Logo}}
<p><img src="{{.Logo}}" alt="{{.Team}}" width="200" height="auto" /></p>
{{- end}}
<p>{{range $i, $line := .Address}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
<p>&nbsp;</p>
{{if .OriginalHTML}}{{.OriginalHTML}}{{else}}<pre>{{.OriginalText}}</pre>{{end}}
`

type bodyData struct {
	Fields       Fields
	Table        template.HTML
	Team         string
	Logo         template.URL
	Address      []string
	OriginalHTML template.HTML
	OriginalText string
}

// Composer builds reply drafts from the fixed reply settings.
type Composer struct {
	cfg  model.ReplyConfig
	tmpl *template.Template
}

// NewComposer returns a Composer for cfg.
func NewComposer(cfg model.ReplyConfig) *Composer {
	return &Composer{
		cfg:  cfg,
		tmpl: template.Must(template.New("reply").Parse(bodyTemplate)),
	}
}

// Compose builds the draft replying to src for client. table is the
// client's spreadsheet table (or the not-found placeholder) and is
// embedded unescaped; attachment is the saved reply path, or empty.
func (c *Composer) Compose(
	src model.Message,
	client string,
	fields Fields,
	table string,
	attachment string,
	now time.Time,
) (*model.ReplyDraft, error) {
	data := bodyData{
		Fields:       fields,
		Table:        template.HTML(table),
		Team:         c.cfg.Team,
		Logo:         template.URL(c.cfg.Logo),
		Address:      c.cfg.Address,
		OriginalHTML: template.HTML(src.HTMLBody),
		OriginalText: src.Body,
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering reply for %q: %w", client, err)
	}

	return &model.ReplyDraft{
		Client:         client,
		Source:         src,
		From:           c.cfg.From,
		To:             append([]string(nil), c.cfg.To...),
		CC:             append([]string(nil), c.cfg.CC...),
		Subject:        replySubject(src.Subject),
		HTMLBody:       buf.String(),
		AttachmentPath: attachment,
		CreatedAt:      now,
	}, nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "RE: " + subject
}
