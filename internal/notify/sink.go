// Package notify formats report runs into human-readable messages and
// fans them out to the configured delivery channels. Channels succeed or
// fail independently; a failing primary channel triggers the escalation
// path to the operator.
package notify

import "context"

// Attachment is a raw artifact (the portal CSV export) shipped with the
// message on channels that support it.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one channel-agnostic notification.
type Message struct {
	Subject     string
	Body        string // plain text, used by SMS and as the email fallback
	HTMLBody    string
	Attachments []Attachment
}

// Sink delivers messages on one channel (email, SMS, chat). All
// implementations treat sends as unreliable I/O.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Result records one channel attempt of one dispatch.
type Result struct {
	Channel string
	Sent    bool
	Err     error
}
