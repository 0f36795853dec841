package ui

import (
	"strings"

	"analyst-ai/chat"
)

// transcriptView turns transcript snapshots into terminal output. Only what
// changed since the previous snapshot is emitted, so streamed replies appear
// chunk by chunk.
type transcriptView struct {
	printed map[int64]string
	order   []int64
}

func newTranscriptView() *transcriptView {
	return &transcriptView{printed: make(map[int64]string)}
}

// update returns the output for msgs relative to what was already shown
func (v *transcriptView) update(msgs []chat.Message) string {
	var sb strings.Builder

	// Transcript was reset
	if len(msgs) < len(v.order) || (len(msgs) > 0 && len(v.order) > 0 && msgs[0].ID != v.order[0]) {
		v.reset()
		sb.WriteString(infoStyle.Render("--- new session ---"))
		sb.WriteString("\n")
	}

	for _, msg := range msgs {
		shown, seen := v.printed[msg.ID]
		switch {
		case !seen:
			if len(v.order) > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(roleLabel(msg.Role))
			sb.WriteString("\n")
			sb.WriteString(msg.Text)
			v.order = append(v.order, msg.ID)
		case msg.Text == shown:
			continue
		case strings.HasPrefix(msg.Text, shown):
			sb.WriteString(msg.Text[len(shown):])
		default:
			// Replaced text, e.g. an error written over a partial reply
			sb.WriteString("\n")
			sb.WriteString(warningStyle.Render(msg.Text))
		}
		v.printed[msg.ID] = msg.Text
	}

	return sb.String()
}

func (v *transcriptView) reset() {
	v.printed = make(map[int64]string)
	v.order = nil
}

func roleLabel(role chat.Role) string {
	if role == chat.RoleUser {
		return userStyle.Render("You:")
	}
	return modelStyle.Render("Analyst AI:")
}

// lastReply returns the text of the most recent non-empty model message
func lastReply(msgs []chat.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleModel && msgs[i].Text != "" {
			return msgs[i].Text, true
		}
	}
	return "", false
}
