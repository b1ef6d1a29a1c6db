package notify

import "context"

// Attachment is a single file carried by a message.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is an outbound notification email with one recipient and one
// attachment.
type Message struct {
	To         string
	Subject    string
	HTMLBody   string
	Attachment Attachment
}

// Notifier dispatches a message. One attempt per call, no internal retry; a
// failed send is terminal for the submission.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
