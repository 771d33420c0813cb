package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"helpdesk-be/pkg/chat"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	// SendTranscript mails the whole conversation to the customer.
	SendTranscript(session *chat.Session) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

var transcriptTemplate = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"clock": func(ms int64) string { return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04") },
}).Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
	<h2>{{.Org}}</h2>
	<p>Dear {{.Session.CustomerName}}, here is the record of your conversation about <b>{{.Session.Topic}}</b>.</p>
	<table style="border-collapse: collapse;">
	{{range .Session.Messages}}
		<tr>
			<td style="padding: 4px 8px; color: #888;">{{clock .Timestamp}}</td>
			<td style="padding: 4px 8px;"><b>{{.Sender}}</b></td>
			<td style="padding: 4px 8px;">{{.Text}}</td>
		</tr>
	{{end}}
	</table>
	<p>This conversation has been closed. You can start a new one from the help desk at any time.</p>
</div>
`))

// RenderTranscript builds the HTML body of a transcript mail.
func RenderTranscript(org string, session *chat.Session) (string, error) {
	var buf bytes.Buffer
	err := transcriptTemplate.Execute(&buf, struct {
		Org     string
		Session *chat.Session
	}{org, session})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *emailService) SendTranscript(session *chat.Session) error {
	body, err := RenderTranscript(s.senderName, session)
	if err != nil {
		return fmt.Errorf("render transcript %s: %w", session.ID, err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", session.CustomerEmail)
	m.SetHeader("Subject", fmt.Sprintf("Your conversation: %s", session.Topic))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send transcript %s: %w", session.ID, err)
	}
	return nil
}
