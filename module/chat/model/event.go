package model

// Event names on the websocket wire.
const (
	EventPresenceChanged      = "presence-changed"
	EventMessageArrived       = "message-arrived"
	EventMessagesDeleted      = "messages-deleted"
	EventChatCleared          = "chat-cleared"
	EventMessageStatusUpdated = "message-status-updated"

	// inbound, client -> server
	EventMessageRead = "message-read"
)

type ChatCleared struct {
	UserID        string `json:"userId"`
	ChatPartnerID string `json:"chatPartnerId"`
}

// Key is the cleared pair.
func (c ChatCleared) Key() ConversationKey { return Direct(c.UserID, c.ChatPartnerID) }

type StatusUpdate struct {
	MessageID string `json:"messageId"`
	Status    Status `json:"status"`
}

// ReadReceipt is the data of an inbound message-read frame.
type ReadReceipt struct {
	MessageIDs []string `json:"messageIds"`
}
