package model

import (
	"slices"
	"time"

	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
)

const MsgTableName = "messages"

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

func (s Status) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// CanAdvanceTo: status only moves forward (sent -> delivered -> read).
func (s Status) CanAdvanceTo(next Status) bool {
	return next.rank() > s.rank()
}

func (s Status) Valid() bool { return s.rank() > 0 }

type DeleteScope string

const (
	DeleteForMe       DeleteScope = "me"
	DeleteForEveryone DeleteScope = "everyone"
)

func (d DeleteScope) Valid() bool { return d == DeleteForMe || d == DeleteForEveryone }

// Message 消息本体。ReceiverID 与 GroupID 二选一。
// ConvKey 冗余存储会话键，便于按会话查询。
type Message struct {
	ID         string    `bson:"_id" json:"_id"`
	SenderID   string    `bson:"senderId" json:"senderId"`
	ReceiverID string    `bson:"receiverId,omitempty" json:"receiverId,omitempty"`
	GroupID    string    `bson:"groupId,omitempty" json:"groupId,omitempty"`
	ConvKey    string    `bson:"convKey" json:"-"`
	Text       string    `bson:"text" json:"text"`
	Image      string    `bson:"image" json:"image"` // attachment reference, opaque
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	DeletedFor []string  `bson:"deletedFor" json:"deletedFor"`
	Status     Status    `bson:"status" json:"status"`
}

func (m *Message) IsGroup() bool { return m.GroupID != "" }

func (m *Message) Key() ConversationKey {
	if m.IsGroup() {
		return GroupKey(m.GroupID)
	}
	return Direct(m.SenderID, m.ReceiverID)
}

func (m *Message) HiddenFrom(userID string) bool {
	return slices.Contains(m.DeletedFor, userID)
}

// Clone copies the slice fields so callers may mutate freely.
func (m *Message) Clone() *Message {
	c := *m
	c.DeletedFor = slices.Clone(m.DeletedFor)
	return &c
}

// MessageView is a message with the sender's display fields resolved.
type MessageView struct {
	*Message `bson:",inline"`
	Sender   usermodel.Summary `bson:"sender" json:"sender"`
}
