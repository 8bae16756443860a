package contest

// EventType classifies inbound webhook events.
type EventType string

const (
	// EventText is a plain text message.
	EventText EventType = "text"
	// EventImage is an image message carrying an opaque content handle.
	EventImage EventType = "image"
	// EventVideo is a video message; the contest accepts photos only.
	EventVideo EventType = "video"
	// EventOther covers every event shape the contest does not consume.
	EventOther EventType = "other"
)

// InboundEvent is the shape the core consumes, independent of the webhook
// transport that produced it.
type InboundEvent struct {
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	Text        string    `json:"text,omitempty"`
	MediaHandle string    `json:"media_handle,omitempty"`
}

// OutcomeKind classifies what the caller should do with an event's result.
type OutcomeKind string

const (
	// OutcomeReply instructs the transport to send Text back to the user.
	OutcomeReply OutcomeKind = "reply"
	// OutcomeSilent means the event was handled with no user-visible reply.
	OutcomeSilent OutcomeKind = "silent"
	// OutcomePassthrough means the event was not handled here and must be
	// forwarded to the external collaborator.
	OutcomePassthrough OutcomeKind = "passthrough"
)

// Outcome is the core's per-event result. The core never performs transport
// I/O itself.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	Text string      `json:"text,omitempty"`
}

// Reply builds a reply outcome with the given text.
func Reply(text string) Outcome {
	return Outcome{Kind: OutcomeReply, Text: text}
}

// Silent builds a handled-without-reply outcome.
func Silent() Outcome {
	return Outcome{Kind: OutcomeSilent}
}

// Passthrough builds an unhandled outcome.
func Passthrough() Outcome {
	return Outcome{Kind: OutcomePassthrough}
}
