package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Attachment is a file carried by the report
type Attachment struct {
	Name string
	Data []byte
}

// Message is an outgoing report email
type Message struct {
	From       string
	To         []string
	Subject    string
	HTML       string
	Attachment *Attachment
	Date       time.Time
}

// Msg converts the report into a go-mail message. Parts are base64 encoded.
func (m Message) Msg() (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.EncodingB64), mail.WithCharset(mail.CharsetUTF8))

	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(m.Subject)

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	msg.SetDateWithValue(date)

	msg.SetBodyString(mail.TypeTextHTML, m.HTML)

	if m.Attachment != nil {
		if err := msg.AttachReader(m.Attachment.Name, bytes.NewReader(m.Attachment.Data)); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", m.Attachment.Name, err)
		}
	}
	return msg, nil
}

// Bytes encodes the message as it is put on the wire
func (m Message) Bytes() ([]byte, error) {
	msg, err := m.Msg()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
