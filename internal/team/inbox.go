package team

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/anuris-ai/anuris/internal/storage/dirstore"
)

// MessageType classifies inbox traffic so readers can render it sensibly.
type MessageType string

const (
	MessageChat      MessageType = "chat"
	MessageTaskNote  MessageType = "task_note"
	MessageBroadcast MessageType = "broadcast"
	MessageSystem    MessageType = "system"
)

// InboxMessage is one entry in a recipient's append-only message log.
// Consumed marks delivery: Drain flips it exactly once, so a message is
// surfaced to its recipient a single time while the log keeps full history.
type InboxMessage struct {
	ID        string      `json:"id"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Type      MessageType `json:"type"`
	Body      string      `json:"body"`
	Timestamp time.Time   `json:"timestamp"`
	Seq       int         `json:"seq"`
	Consumed  bool        `json:"consumed"`
}

// Inbox manages per-recipient JSONL message files under one directory.
type Inbox struct {
	ds *dirstore.DirStore
}

// NewInbox opens the inbox store rooted at baseDir.
func NewInbox(baseDir string) *Inbox {
	return &Inbox{ds: dirstore.New(baseDir, "inbox")}
}

func inboxFile(recipient string) string {
	return recipient + ".jsonl"
}

// Deliver appends a message to the recipient's log. Seq is assigned under
// the lock so concurrent senders cannot collide; it breaks timestamp ties
// during drain ordering.
func (in *Inbox) Deliver(from, to, body string, typ MessageType) (*InboxMessage, error) {
	if to == "" {
		return nil, fmt.Errorf("deliver message: empty recipient")
	}
	if err := in.ds.Acquire(); err != nil {
		return nil, err
	}
	defer in.ds.Release()

	existing, err := dirstore.LoadJSONL[InboxMessage](in.ds, inboxFile(to))
	if err != nil {
		return nil, fmt.Errorf("deliver to %q: %w", to, err)
	}
	msg := &InboxMessage{
		ID:        "m-" + uuid.NewString()[:8],
		From:      from,
		To:        to,
		Type:      typ,
		Body:      body,
		Timestamp: time.Now().UTC(),
		Seq:       len(existing) + 1,
	}
	if err := in.ds.AppendJSONL(inboxFile(to), msg); err != nil {
		return nil, fmt.Errorf("deliver to %q: %w", to, err)
	}
	return msg, nil
}

// Drain returns every unconsumed message for recipient, oldest first, and
// marks them consumed in the same locked operation. A second drain returns
// nothing until new messages arrive.
func (in *Inbox) Drain(recipient string) ([]InboxMessage, error) {
	if err := in.ds.Acquire(); err != nil {
		return nil, err
	}
	defer in.ds.Release()

	all, err := dirstore.LoadJSONL[InboxMessage](in.ds, inboxFile(recipient))
	if err != nil {
		return nil, fmt.Errorf("drain inbox %q: %w", recipient, err)
	}
	var fresh []InboxMessage
	for i := range all {
		if !all[i].Consumed {
			all[i].Consumed = true
			fresh = append(fresh, all[i])
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	if err := dirstore.WriteJSONL(in.ds, inboxFile(recipient), all); err != nil {
		return nil, fmt.Errorf("drain inbox %q: %w", recipient, err)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		if fresh[i].Timestamp.Equal(fresh[j].Timestamp) {
			return fresh[i].Seq < fresh[j].Seq
		}
		return fresh[i].Timestamp.Before(fresh[j].Timestamp)
	})
	return fresh, nil
}

// Peek returns unconsumed messages without marking them consumed.
func (in *Inbox) Peek(recipient string) ([]InboxMessage, error) {
	if err := in.ds.Acquire(); err != nil {
		return nil, err
	}
	defer in.ds.Release()

	all, err := dirstore.LoadJSONL[InboxMessage](in.ds, inboxFile(recipient))
	if err != nil {
		return nil, fmt.Errorf("peek inbox %q: %w", recipient, err)
	}
	var fresh []InboxMessage
	for _, m := range all {
		if !m.Consumed {
			fresh = append(fresh, m)
		}
	}
	return fresh, nil
}

// History returns the full log for recipient, consumed entries included.
func (in *Inbox) History(recipient string) ([]InboxMessage, error) {
	if err := in.ds.Acquire(); err != nil {
		return nil, err
	}
	defer in.ds.Release()
	return dirstore.LoadJSONL[InboxMessage](in.ds, inboxFile(recipient))
}
