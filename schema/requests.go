package schema

// Session lifecycle.

// OpenSessionRequest describes a request to open a session.
// An empty ID asks the service to generate one.
type OpenSessionRequest struct {
	ID       SessionID
	Mode     RenderMode
	Viewport Viewport
	// Conversation resumes an existing conversation record when set.
	Conversation ConversationID
}

// OpenSessionResponse reports the opened session.
type OpenSessionResponse struct {
	Session SessionSnapshot
}

// Input.

// SubmitResult reports what happened to a submitted command.
type SubmitResult struct {
	// Block is the finalized command block. Zero when Ignored or when the raw
	// terminal was revealed.
	Block Block
	// Ignored is true when the submit was swallowed by the post-composition guard.
	Ignored bool
	// Launch is true when the command was recognized as launching the agent CLI.
	Launch bool
}
