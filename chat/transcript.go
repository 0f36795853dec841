package chat

import "time"

// Role identifies who wrote a message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one transcript entry. Only the text of the message currently
// being streamed is ever changed.
type Message struct {
	ID   int64  `json:"id" yaml:"id"`
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// Transcript is the ordered log of exchanged messages
type Transcript struct {
	messages []Message
	lastID   int64
	now      func() time.Time
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append adds a message and returns it with its assigned id
func (t *Transcript) Append(role Role, text string) Message {
	msg := Message{ID: t.nextID(), Role: role, Text: text}
	t.messages = append(t.messages, msg)
	return msg
}

// AppendText extends the text of message id and returns the new text
func (t *Transcript) AppendText(id int64, chunk string) (string, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return "", false
	}
	t.messages[i].Text += chunk
	return t.messages[i].Text, true
}

// SetText replaces the text of message id
func (t *Transcript) SetText(id int64, text string) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.messages[i].Text = text
	return true
}

// Get returns message id
func (t *Transcript) Get(id int64) (Message, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return Message{}, false
	}
	return t.messages[i], true
}

// Messages returns a copy of every message in order
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Reset removes every message
func (t *Transcript) Reset() {
	t.messages = nil
}

// nextID derives ids from the clock, bumping past the last one so ids stay
// unique and increasing when messages are created within the same millisecond
func (t *Transcript) nextID() int64 {
	id := t.now().UnixMilli()
	if id <= t.lastID {
		id = t.lastID + 1
	}
	t.lastID = id
	return id
}

func (t *Transcript) indexOf(id int64) int {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}
