// Package mail renders account emails and delivers them over SMTP.
package mail

import "context"

// Message is a rendered email ready for the transport.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
