package core

import (
	"github.com/google/uuid"

	"pkt.systems/hybridterm/schema"
)

func newID() string {
	return uuid.NewString()
}

func newSessionID() schema.SessionID {
	return schema.SessionID(newID())
}

func newBlockID() schema.BlockID {
	return schema.BlockID(newID())
}

func newConversationID() schema.ConversationID {
	return schema.ConversationID(newID())
}
