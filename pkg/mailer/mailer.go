package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Client sends plain-text email over SMTP with optional AUTH.
type Client struct {
	host     string
	port     int
	username string
	password string
	from     string

	// sendMail is swappable in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewClient(host string, port int, username, password, from string) *Client {
	return &Client{
		host:     strings.TrimSpace(host),
		port:     port,
		username: strings.TrimSpace(username),
		password: password,
		from:     strings.TrimSpace(from),
		sendMail: smtp.SendMail,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.host != "" && c.from != ""
}

// Send delivers one message. The body is expected to start with a
// "Subject: ..." line followed by a blank line, which is how the email
// templates are laid out.
func (c *Client) Send(to, rendered string) error {
	if !c.Configured() {
		return errors.New("mailer is not configured")
	}

	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient is empty")
	}

	subject, body := splitSubject(rendered)

	var msg strings.Builder
	msg.WriteString("From: " + c.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if c.username != "" {
		auth = smtp.PlainAuth("", c.username, c.password, c.host)
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	return c.sendMail(addr, auth, c.from, []string{to}, []byte(msg.String()))
}

func splitSubject(rendered string) (subject, body string) {
	trimmed := strings.TrimLeft(rendered, "\r\n")
	lines := strings.SplitN(trimmed, "\n", 2)

	first := strings.TrimSpace(lines[0])
	if strings.HasPrefix(first, "Subject:") {
		subject = strings.TrimSpace(strings.TrimPrefix(first, "Subject:"))
		if len(lines) > 1 {
			body = strings.TrimLeft(lines[1], "\r\n")
		}
		return subject, body
	}

	return "Notification", trimmed
}
