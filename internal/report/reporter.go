package report

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// SubjectPrefix starts every report subject line
const SubjectPrefix = "Options Data from CBOE Website"

// Reporter assembles the newsletter and hands it to a Sender
type Reporter struct {
	sender     Sender
	fs         afero.Fs
	from       string
	recipients []string
}

// NewReporter creates a new Reporter reading log files from fs
func NewReporter(sender Sender, fs afero.Fs, from string, recipients []string) *Reporter {
	return &Reporter{sender: sender, fs: fs, from: from, recipients: recipients}
}

// Send renders data and mails it with the log file at logPath attached
func (r *Reporter) Send(ctx context.Context, data Data, logPath string, now time.Time) error {
	html, err := Render(data)
	if err != nil {
		return err
	}

	logData, err := afero.ReadFile(r.fs, logPath)
	if err != nil {
		return fmt.Errorf("failed to read run log %s: %w", logPath, err)
	}

	msg := Message{
		From:    r.from,
		To:      r.recipients,
		Subject: fmt.Sprintf("%s %s", SubjectPrefix, now.Format(time.ANSIC)),
		HTML:    html,
		Attachment: &Attachment{
			Name: filepath.Base(logPath),
			Data: logData,
		},
		Date: now,
	}

	if err := r.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}
