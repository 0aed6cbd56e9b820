// Package mailer delivers notification emails.
package mailer

import "context"

// Message is a single notification addressed to one recipient. HTML is an
// optional alternative rendering of Text.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages. A returned error means the message was not accepted
// for delivery and may be retried.
//
//go:generate mockgen -package mockmailer -source=interface.go -destination=mock/mockmailer.go *
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
