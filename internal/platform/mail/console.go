package mail

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ConsoleMailer logs outgoing mail instead of delivering it. Dev mode only.
// Sent messages are retained so tests can assert on them.
type ConsoleMailer struct {
	FromName    string
	FromAddress string
	Quiet       bool

	mu   sync.Mutex
	sent []Message
}

func NewConsoleMailer(fromName, fromAddress string) *ConsoleMailer {
	return &ConsoleMailer{FromName: fromName, FromAddress: fromAddress}
}

func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	if m.Quiet {
		return nil
	}

	body := new(strings.Builder)
	fmt.Fprintf(body, "From: %s <%s>\r\n", m.FromName, m.FromAddress)
	fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(body, "To: %s <%s>\r\n", msg.ToName, msg.To)
	fmt.Fprintf(body, "Subject: %s\r\n\r\n", msg.Subject)
	fmt.Fprintf(body, "%s\r\n", msg.Text)
	log.Println(body.String())
	return nil
}

// Sent returns a copy of everything passed to Send.
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
