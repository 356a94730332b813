package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"pkt.systems/hybridterm/schema"
)

const maxPendingMessages = 32

// conversationLog tracks the conversation bound to a session: user messages
// submitted before the first agent turn and the clean transcript of the
// running turn.
type conversationLog struct {
	id      schema.ConversationID
	pending []schema.Message
	turn    strings.Builder
	max     int
}

func newConversationLog(id schema.ConversationID, max int) *conversationLog {
	if max <= 0 {
		max = schema.DefaultTurnTranscriptMax
	}
	return &conversationLog{id: id, max: max}
}

// queueUser records a submitted message that has no conversation yet.
func (c *conversationLog) queueUser(text string, at time.Time) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.pending = append(c.pending, schema.Message{Role: schema.RoleUser, Content: text, Timestamp: at})
	if len(c.pending) > maxPendingMessages {
		c.pending = c.pending[len(c.pending)-maxPendingMessages:]
	}
}

// takePending returns and clears queued user messages.
func (c *conversationLog) takePending() []schema.Message {
	out := c.pending
	c.pending = nil
	return out
}

// record appends clean agent text to the running turn, up to the limit.
func (c *conversationLog) record(clean string) {
	room := c.max - c.turn.Len()
	if room <= 0 || clean == "" {
		return
	}
	if len(clean) > room {
		for room > 0 && !utf8.RuneStart(clean[room]) {
			room--
		}
		clean = clean[:room]
	}
	c.turn.WriteString(clean)
}

// finishTurn returns the assistant message for the finished turn, if any text
// was recorded, and resets the transcript.
func (c *conversationLog) finishTurn(at time.Time) (schema.Message, bool) {
	text := strings.TrimSpace(c.turn.String())
	c.turn.Reset()
	if text == "" {
		return schema.Message{}, false
	}
	return schema.Message{Role: schema.RoleAssistant, Content: text, Timestamp: at}, true
}
