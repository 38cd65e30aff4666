package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn written by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn written by the assistant.
	RoleAssistant Role = "assistant"
)

// Source is a citation attached to an assistant turn. It is derived
// from a chunk's parent document at composition time and not persisted
// independently.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Turn is one message within a conversation's ordered history.
type Turn struct {
	// Role is the author of the turn.
	Role Role

	// Text is the message content.
	Text string

	// Sources lists the citations grounding an assistant turn.
	// Empty for user turns and for answers with no grounding.
	Sources []Source

	// Timestamp is when the turn was appended.
	Timestamp time.Time
}

// Conversation holds the multi-turn state for one chat session.
// The conversation ID is the sole correlation key across turns.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string

	// Turns is the strictly time-ordered sequence of messages.
	Turns []Turn

	// CreatedAt is when the conversation was started.
	CreatedAt time.Time
}

// Answer is the result of one grounded query.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Sources lists the documents the answer was grounded on.
	Sources []Source

	// ConversationID identifies the conversation the exchange was
	// appended to, newly generated when the caller supplied none.
	ConversationID string
}
