package mail

import "context"

// Message is a plain-text mail. Sign-in links are the only traffic, so
// there is no HTML/attachment support.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
