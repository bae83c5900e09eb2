package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/fanout"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/message"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/module/group"
	"github.com/Anuragsahu418/EDUCHAT/module/user"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/Anuragsahu418/EDUCHAT/tools/ids"
	"github.com/Anuragsahu418/EDUCHAT/tools/safe"
	"go.uber.org/zap"
)

// Deliverer runs a fan-out plan against live connections.
type Deliverer interface {
	Execute(ctx context.Context, plan fanout.Plan) error
}

type Options struct {
	Messages  message.Store
	Groups    group.Store
	Users     user.Directory
	Deliverer Deliverer

	NewID func() string    // 默认 ids.GenerateString
	Now   func() time.Time // 默认 time.Now
}

// Service 聊天动作编排：鉴权 -> 落库 -> 扇出（仅在写成功之后）
type Service struct {
	msgs   message.Store
	groups group.Store
	users  user.Directory
	out    Deliverer
	newID  func() string
	now    func() time.Time
}

func New(o Options) *Service {
	safe.MustNotNil(o.Messages, "message store")
	safe.MustNotNil(o.Groups, "group store")
	safe.MustNotNil(o.Users, "user directory")
	s := &Service{
		msgs:   o.Messages,
		groups: o.Groups,
		users:  o.Users,
		out:    o.Deliverer,
		newID:  o.NewID,
		now:    o.Now,
	}
	if s.newID == nil {
		s.newID = ids.GenerateString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SetDeliverer is used when the realtime server is built after the service.
func (s *Service) SetDeliverer(d Deliverer) { s.out = d }

// fanout failures are logged; the durable state already reflects the action.
func (s *Service) fanout(ctx context.Context, action string, plan fanout.Plan) {
	if s.out == nil || len(plan) == 0 {
		return
	}
	if err := s.out.Execute(ctx, plan); err != nil {
		logger.Error("fanout failed", zap.String("action", action), zap.Error(err))
	}
}

// ===== send =====

// Send persists a message to a direct partner or a group and pushes it to the recipients.
func (s *Service) Send(ctx context.Context, actor usermodel.Actor, to chatmodel.ConversationKey, text, image string) (*chatmodel.MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return nil, errs.ErrBadRequest.WrapMsg("message needs text or image")
	}

	m := &chatmodel.Message{
		ID:         s.newID(),
		SenderID:   actor.ID,
		Text:       text,
		Image:      image,
		CreatedAt:  s.now().UTC(),
		DeletedFor: []string{},
		Status:     chatmodel.StatusSent,
	}

	var members []string
	switch {
	case to.IsDirect():
		partner := to.Partner(actor.ID)
		if partner == "" {
			return nil, errs.ErrUnauthorized.WrapMsg("not a participant", "conv", to.String())
		}
		if _, err := s.users.FindByID(ctx, partner); err != nil {
			return nil, err
		}
		m.ReceiverID = partner
	case to.IsGroup():
		g, err := s.groups.FindByID(ctx, to.GroupID)
		if err != nil {
			return nil, err
		}
		if !fanout.CanSendToGroup(actor, g) {
			return nil, errs.ErrUnauthorized.WrapMsg("not a group member", "group", g.ID)
		}
		m.GroupID = g.ID
		members = g.Members
	default:
		return nil, errs.ErrBadRequest.WrapMsg("empty conversation key")
	}
	m.ConvKey = m.Key().String()

	if err := s.msgs.Save(ctx, m); err != nil {
		return nil, err
	}

	view := chatmodel.MessageView{Message: m, Sender: s.summary(ctx, actor.ID)}
	s.fanout(ctx, "send", fanout.ForSend(view, members))
	logger.Debug("message sent", zap.String("id", m.ID), zap.String("conv", m.ConvKey))
	return &view, nil
}

// ===== delete =====

// Delete hides messages for the actor (me) or for every participant (everyone).
// Every id must exist and be deletable by the actor before anything is written.
func (s *Service) Delete(ctx context.Context, actor usermodel.Actor, msgIDs []string, scope chatmodel.DeleteScope) ([]string, error) {
	if !scope.Valid() {
		return nil, errs.ErrBadRequest.WrapMsg("bad delete scope", "scope", scope)
	}
	msgIDs = dedupe(msgIDs)
	if len(msgIDs) == 0 {
		return nil, errs.ErrBadRequest.WrapMsg("messageIds required")
	}

	msgs, err := s.msgs.FindByIDs(ctx, msgIDs)
	if err != nil {
		return nil, err
	}
	if len(msgs) != len(msgIDs) {
		return nil, errs.ErrNotFound.WrapMsg("message", "missing", missing(msgIDs, msgs))
	}
	for _, m := range msgs {
		if !fanout.CanDelete(actor, m) {
			return nil, errs.ErrUnauthorized.WrapMsg("cannot delete message", "id", m.ID)
		}
	}

	// 群成员快照：动作发生时的成员
	members := make(map[string][]string)
	if scope == chatmodel.DeleteForEveryone {
		for _, m := range msgs {
			if !m.IsGroup() {
				continue
			}
			if _, ok := members[m.GroupID]; ok {
				continue
			}
			g, err := s.groups.FindByID(ctx, m.GroupID)
			if err != nil {
				return nil, err
			}
			members[m.GroupID] = g.Members
		}
	}

	hidden := make(map[string][]string, len(msgs))
	for _, m := range msgs {
		who := fanout.HiddenFor(actor, m, scope, members[m.GroupID])
		if err := s.msgs.AddDeletedFor(ctx, m.ID, who); err != nil {
			return nil, err
		}
		hidden[m.ID] = who
	}

	s.fanout(ctx, "delete", fanout.ForDelete(msgs, hidden))
	return msgIDs, nil
}

// ===== clear =====

// Clear hard-deletes the direct conversation between actor and partner.
func (s *Service) Clear(ctx context.Context, actor usermodel.Actor, partnerID string) (int64, error) {
	if partnerID == "" {
		return 0, errs.ErrBadRequest.WrapMsg("partner id required")
	}
	if !fanout.CanClear(actor, chatmodel.Direct(actor.ID, partnerID)) {
		return 0, errs.ErrUnauthorized.Wrap()
	}
	if _, err := s.users.FindByID(ctx, partnerID); err != nil {
		return 0, err
	}
	n, err := s.msgs.DeleteDirect(ctx, actor.ID, partnerID)
	if err != nil {
		return 0, err
	}
	s.fanout(ctx, "clear", fanout.ForClear(actor, partnerID))
	logger.Info("chat cleared", zap.String("user", actor.ID), zap.String("partner", partnerID), zap.Int64("removed", n))
	return n, nil
}

// ===== read receipts =====

// MarkRead moves the actor's eligible unread messages to read and reports each
// transition to its sender. Ineligible or unknown ids are skipped.
func (s *Service) MarkRead(ctx context.Context, actor usermodel.Actor, msgIDs []string) ([]string, error) {
	msgIDs = dedupe(msgIDs)
	if len(msgIDs) == 0 {
		return nil, nil
	}
	msgs, err := s.msgs.FindByIDs(ctx, msgIDs)
	if err != nil {
		return nil, err
	}

	members := make(map[string][]string)
	var transitioned []*chatmodel.Message
	for _, m := range msgs {
		if m.Status == chatmodel.StatusRead {
			continue
		}
		if m.IsGroup() {
			if _, ok := members[m.GroupID]; !ok {
				g, err := s.groups.FindByID(ctx, m.GroupID)
				switch {
				case err == nil:
					members[m.GroupID] = g.Members
				case errors.Is(err, errs.ErrNotFound):
					members[m.GroupID] = nil
				default:
					return nil, err
				}
			}
		}
		if !fanout.CanReadReceipt(actor, m, members[m.GroupID]) {
			continue
		}
		updated, ok, err := s.msgs.MarkRead(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			transitioned = append(transitioned, updated)
		}
	}

	s.fanout(ctx, "read", fanout.ForRead(transitioned))
	out := make([]string, 0, len(transitioned))
	for _, m := range transitioned {
		out = append(out, m.ID)
	}
	return out, nil
}

// ===== queries =====

// History lists a conversation oldest first, without what the actor deleted.
func (s *Service) History(ctx context.Context, actor usermodel.Actor, key chatmodel.ConversationKey) ([]chatmodel.MessageView, error) {
	switch {
	case key.IsDirect():
		if !key.Involves(actor.ID) {
			return nil, errs.ErrUnauthorized.WrapMsg("not a participant", "conv", key.String())
		}
	case key.IsGroup():
		g, err := s.groups.FindByID(ctx, key.GroupID)
		if err != nil {
			return nil, err
		}
		if !fanout.CanViewGroup(actor, g) {
			return nil, errs.ErrUnauthorized.WrapMsg("not a group member", "group", g.ID)
		}
	default:
		return nil, errs.ErrBadRequest.WrapMsg("empty conversation key")
	}

	msgs, err := s.msgs.FindByConversation(ctx, key, actor.ID)
	if err != nil {
		return nil, err
	}
	senders := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senders = append(senders, m.SenderID)
	}
	sums, err := s.users.Summaries(ctx, dedupe(senders))
	if err != nil {
		return nil, err
	}
	out := make([]chatmodel.MessageView, 0, len(msgs))
	for _, m := range msgs {
		sum, ok := sums[m.SenderID]
		if !ok {
			sum = usermodel.Summary{ID: m.SenderID}
		}
		out = append(out, chatmodel.MessageView{Message: m, Sender: sum})
	}
	return out, nil
}

// Contacts is the sidebar: every user but the actor.
func (s *Service) Contacts(ctx context.Context, actor usermodel.Actor) ([]usermodel.Summary, error) {
	return s.users.ListExcept(ctx, actor.ID)
}

func (s *Service) summary(ctx context.Context, userID string) usermodel.Summary {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("sender lookup failed", zap.String("user", userID), zap.Error(err))
		return usermodel.Summary{ID: userID}
	}
	return u.Summary()
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func missing(want []string, got []*chatmodel.Message) []string {
	var out []string
	for _, id := range want {
		if !slices.ContainsFunc(got, func(m *chatmodel.Message) bool { return m.ID == id }) {
			out = append(out, id)
		}
	}
	return out
}
