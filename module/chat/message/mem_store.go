package message

import (
	"context"
	"slices"
	"sort"
	"sync"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
)

// MemStore keeps messages in process; used by storage.driver=memory and tests.
// Returned messages are copies.
type MemStore struct {
	mu   sync.RWMutex
	msgs map[string]*chatmodel.Message
}

func NewMemStore() *MemStore {
	return &MemStore{msgs: make(map[string]*chatmodel.Message)}
}

func (s *MemStore) Save(_ context.Context, m *chatmodel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[m.ID]; ok {
		return errs.ErrDuplicate.WrapMsg("message", "id", m.ID)
	}
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	m.ConvKey = m.Key().String()
	s.msgs[m.ID] = m.Clone()
	return nil
}

func (s *MemStore) FindByIDs(_ context.Context, ids []string) ([]*chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*chatmodel.Message
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func (s *MemStore) AddDeletedFor(_ context.Context, id string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return errs.ErrNotFound.WrapMsg("message", "id", id)
	}
	for _, u := range userIDs {
		if !slices.Contains(m.DeletedFor, u) {
			m.DeletedFor = append(m.DeletedFor, u)
		}
	}
	return nil
}

func (s *MemStore) MarkRead(_ context.Context, id string) (*chatmodel.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || !m.Status.CanAdvanceTo(chatmodel.StatusRead) {
		return nil, false, nil
	}
	m.Status = chatmodel.StatusRead
	return m.Clone(), true, nil
}

func (s *MemStore) DeleteDirect(_ context.Context, a, b string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatmodel.Direct(a, b).String()
	var n int64
	for id, m := range s.msgs {
		if !m.IsGroup() && m.ConvKey == key {
			delete(s.msgs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemStore) FindByConversation(_ context.Context, key chatmodel.ConversationKey, viewer string) ([]*chatmodel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := key.String()
	out := make([]*chatmodel.Message, 0)
	for _, m := range s.msgs {
		if m.ConvKey == k && !m.HiddenFrom(viewer) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
