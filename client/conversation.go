package client

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
)

var ErrNotOpen = errors.New("no conversation open")

// ConversationView holds the local state of the one open conversation.
//
// States: unsubscribed (initial) and subscribed. Open binds listeners for the
// new key after unbinding the previous ones; Close unbinds and drops state.
type ConversationView struct {
	self   string
	events EventSource
	api    Backend

	mu       sync.Mutex
	key      chatmodel.ConversationKey
	msgs     []chatmodel.MessageView
	selected []string
	unbind   []func()

	// 拉取历史期间收到的推送，合并时作用到历史快照上
	loading bool
	late    lateEvents
}

type lateEvents struct {
	deleted map[string]struct{}
	status  map[string]chatmodel.Status
	cleared bool
}

func NewConversationView(self string, events EventSource, api Backend) *ConversationView {
	return &ConversationView{self: self, events: events, api: api}
}

// Open switches to key and loads its history.
func (v *ConversationView) Open(ctx context.Context, key chatmodel.ConversationKey) error {
	v.Close()

	v.mu.Lock()
	v.key = key
	v.unbind = []func(){
		v.events.On(chatmodel.EventMessageArrived, v.onArrived),
		v.events.On(chatmodel.EventMessagesDeleted, v.onDeleted),
		v.events.On(chatmodel.EventChatCleared, v.onCleared),
		v.events.On(chatmodel.EventMessageStatusUpdated, v.onStatus),
	}
	v.loading = true
	v.late = lateEvents{}
	v.mu.Unlock()

	hist, err := v.api.History(ctx, key)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != key {
		return err // 已切换到别的会话
	}
	late := v.late
	v.loading, v.late = false, lateEvents{}
	if err != nil {
		return err
	}
	// pushes that raced the fetch are kept; history wins on duplicates
	merged := late.apply(hist)
	for _, m := range v.msgs {
		if !containsMsg(merged, m.ID) {
			merged = append(merged, m)
		}
	}
	v.msgs = merged
	return nil
}

// Close unbinds every listener of the current key.
func (v *ConversationView) Close() {
	v.mu.Lock()
	unbind := v.unbind
	v.unbind = nil
	v.key = chatmodel.ConversationKey{}
	v.msgs = nil
	v.selected = nil
	v.loading, v.late = false, lateEvents{}
	v.mu.Unlock()

	for _, fn := range unbind {
		fn()
	}
}

func (v *ConversationView) Key() chatmodel.ConversationKey {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

func (v *ConversationView) Subscribed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.key.IsZero()
}

func (v *ConversationView) Messages() []chatmodel.MessageView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.msgs)
}

func (v *ConversationView) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.selected)
}

// ToggleSelect flips id in the selection; unknown ids are ignored.
func (v *ConversationView) ToggleSelect(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := slices.Index(v.selected, id); i >= 0 {
		v.selected = slices.Delete(v.selected, i, i+1)
		return
	}
	if containsMsg(v.msgs, id) {
		v.selected = append(v.selected, id)
	}
}

func (v *ConversationView) ClearSelection() {
	v.mu.Lock()
	v.selected = nil
	v.mu.Unlock()
}

// Send posts to the open conversation. The sender gets no push for its own
// message, so the server's copy is appended here.
func (v *ConversationView) Send(ctx context.Context, text, image string) (*chatmodel.MessageView, error) {
	key := v.Key()
	if key.IsZero() {
		return nil, ErrNotOpen
	}
	m, err := v.api.Send(ctx, key, text, image)
	if err != nil {
		return nil, err
	}
	v.appendIf(key, *m)
	return m, nil
}

// DeleteSelected deletes the selection and drops it locally once the server agrees.
func (v *ConversationView) DeleteSelected(ctx context.Context, scope chatmodel.DeleteScope) error {
	ids := v.Selected()
	if len(ids) == 0 {
		return nil
	}
	if err := v.api.Delete(ctx, ids, scope); err != nil {
		return err
	}
	v.remove(ids)
	return nil
}

// Clear wipes the open direct conversation on the server and locally.
func (v *ConversationView) Clear(ctx context.Context) error {
	key := v.Key()
	partner := key.Partner(v.self)
	if partner == "" {
		return ErrNotOpen
	}
	if err := v.api.Clear(ctx, partner); err != nil {
		return err
	}
	v.wipe(key)
	return nil
}

// Forward re-sends local messages to another conversation, in the given order.
// Copies sent to the open conversation show up locally.
func (v *ConversationView) Forward(ctx context.Context, ids []string, to chatmodel.ConversationKey) ([]chatmodel.MessageView, error) {
	v.mu.Lock()
	src := make([]chatmodel.MessageView, 0, len(ids))
	for _, id := range ids {
		if i := indexMsg(v.msgs, id); i >= 0 {
			src = append(src, v.msgs[i])
		}
	}
	v.mu.Unlock()

	out := make([]chatmodel.MessageView, 0, len(src))
	for _, m := range src {
		sent, err := v.api.Send(ctx, to, m.Text, m.Image)
		if err != nil {
			return out, err
		}
		v.appendIf(to, *sent)
		out = append(out, *sent)
	}
	v.ClearSelection()
	return out, nil
}

// ===== push handlers =====

func (v *ConversationView) onArrived(data json.RawMessage) {
	var m chatmodel.MessageView
	if err := json.Unmarshal(data, &m); err != nil || m.Message == nil {
		return
	}
	v.appendIf(m.Key(), m)
}

func (v *ConversationView) onDeleted(data json.RawMessage) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return
	}
	v.remove(ids)
}

func (v *ConversationView) onCleared(data json.RawMessage) {
	var ev chatmodel.ChatCleared
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	v.wipe(ev.Key())
}

func (v *ConversationView) onStatus(data json.RawMessage) {
	var su chatmodel.StatusUpdate
	if err := json.Unmarshal(data, &su); err != nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loading {
		if v.late.status == nil {
			v.late.status = make(map[string]chatmodel.Status)
		}
		v.late.status[su.MessageID] = su.Status
	}
	advance(v.msgs, su.MessageID, su.Status)
}

func advance(ms []chatmodel.MessageView, id string, st chatmodel.Status) {
	if i := indexMsg(ms, id); i >= 0 && ms[i].Status.CanAdvanceTo(st) {
		m := ms[i].Message.Clone()
		m.Status = st
		ms[i].Message = m
	}
}

// appendIf adds m when key is the open conversation and m is not there yet.
func (v *ConversationView) appendIf(key chatmodel.ConversationKey, m chatmodel.MessageView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key.IsZero() || key != v.key || containsMsg(v.msgs, m.ID) {
		return
	}
	v.msgs = append(v.msgs, m)
}

func (v *ConversationView) remove(ids []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loading {
		if v.late.deleted == nil {
			v.late.deleted = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			v.late.deleted[id] = struct{}{}
		}
	}
	v.msgs = slices.DeleteFunc(v.msgs, func(m chatmodel.MessageView) bool { return slices.Contains(ids, m.ID) })
	v.selected = slices.DeleteFunc(v.selected, func(id string) bool { return slices.Contains(ids, id) })
}

func (v *ConversationView) wipe(key chatmodel.ConversationKey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key.IsZero() || key != v.key {
		return
	}
	if v.loading {
		v.late.cleared = true
	}
	v.msgs = nil
	v.selected = nil
}

// apply replays late events onto a history snapshot fetched before them.
func (l lateEvents) apply(hist []chatmodel.MessageView) []chatmodel.MessageView {
	if l.cleared {
		return nil
	}
	hist = slices.DeleteFunc(hist, func(m chatmodel.MessageView) bool {
		_, gone := l.deleted[m.ID]
		return gone
	})
	for id, st := range l.status {
		advance(hist, id, st)
	}
	return hist
}

func indexMsg(ms []chatmodel.MessageView, id string) int {
	return slices.IndexFunc(ms, func(m chatmodel.MessageView) bool { return m.ID == id })
}

func containsMsg(ms []chatmodel.MessageView, id string) bool { return indexMsg(ms, id) >= 0 }
