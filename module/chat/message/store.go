package message

import (
	"context"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
)

// Store is the durable message collaborator. All methods return errs-coded
// errors: ErrNotFound for missing ids, ErrPersistence for driver failures.
type Store interface {
	Save(ctx context.Context, m *chatmodel.Message) error
	// FindByIDs returns the messages found; missing ids are simply absent.
	FindByIDs(ctx context.Context, ids []string) ([]*chatmodel.Message, error)
	// AddDeletedFor adds users to the message's deleted-for set (set union).
	AddDeletedFor(ctx context.Context, id string, userIDs []string) error
	// MarkRead moves one message to read iff it is not read yet.
	// transitioned is false when it was already read or does not exist.
	MarkRead(ctx context.Context, id string) (m *chatmodel.Message, transitioned bool, err error)
	// DeleteDirect hard-deletes every direct message between a and b.
	DeleteDirect(ctx context.Context, a, b string) (int64, error)
	// FindByConversation lists a conversation oldest first, hiding what viewer deleted.
	FindByConversation(ctx context.Context, key chatmodel.ConversationKey, viewer string) ([]*chatmodel.Message, error)
}
