// Package mail delivers outbound messages. The platform always sends from
// its own verified address; the user's identity only appears as display
// name and Reply-To.
package mail

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by OpenSMTP when no relay is configured.
var ErrNotConfigured = errors.New("mail: transport not configured")

type Address struct {
	Name  string
	Email string
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	From        Address
	To          []string
	ReplyTo     string
	Subject     string
	Text        string
	Attachments []Attachment
}

type Transport interface {
	Send(ctx context.Context, msg Message) error
}
