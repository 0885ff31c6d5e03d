package domain

import "encoding/json"

// Frame type discriminators shared by both WebSocket channels.
const (
	FrameChatMessage = "chat_message"
	FrameTyping      = "typing"
	FrameListUpdated = "conversation_list_updated"
	FrameError       = "error"
)

// Frame is a raw inbound WebSocket frame: the type discriminator plus the
// undecoded payload. Consumers decode Data into the concrete frame struct
// matching Type.
type Frame struct {
	Type string
	Data json.RawMessage
}

// Decode unmarshals the raw frame payload into v.
func (f Frame) Decode(v any) error {
	return json.Unmarshal(f.Data, v)
}

// ChatMessageFrame carries a server-confirmed message on a conversation
// channel.
type ChatMessageFrame struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

// TypingFrame signals a counterpart starting or stopping typing. The server
// fills user_name when the sender has a display name, user_email otherwise.
type TypingFrame struct {
	Type      string `json:"type"`
	IsTyping  bool   `json:"is_typing"`
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// DisplayName returns the typing party's name, falling back to email.
func (f TypingFrame) DisplayName() string {
	if f.UserName != "" {
		return f.UserName
	}
	return f.UserEmail
}

// ListUpdatedFrame notifies the list channel that a conversation changed.
// Conversation is nil when the conversation no longer exists.
type ListUpdatedFrame struct {
	Type           string        `json:"type"`
	ConversationID ID            `json:"conversation_id"`
	Conversation   *Conversation `json:"conversation"`
}

// ErrorFrame is a non-fatal server-side error notification.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OutboundMessage is the client -> server frame for sending a chat message.
type OutboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// OutboundTyping is the client -> server typing indicator frame.
type OutboundTyping struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

// NewOutboundMessage builds a chat_message frame for the given content.
func NewOutboundMessage(content string) OutboundMessage {
	return OutboundMessage{Type: FrameChatMessage, Content: content}
}

// NewOutboundTyping builds a typing frame.
func NewOutboundTyping(isTyping bool) OutboundTyping {
	return OutboundTyping{Type: FrameTyping, IsTyping: isTyping}
}
