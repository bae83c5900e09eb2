// Package fanout decides, per chat action, who may perform it and which
// users receive which event. It performs no I/O.
package fanout

import (
	"slices"
	"sort"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
)

// Delivery is one event addressed to a set of users.
type Delivery struct {
	Targets []string
	Event   string
	Payload any
}

type Plan []Delivery

// ===== authorization =====

func CanDelete(actor usermodel.Actor, m *chatmodel.Message) bool {
	return actor.IsModerator() || m.SenderID == actor.ID
}

func CanClear(actor usermodel.Actor, key chatmodel.ConversationKey) bool {
	return key.IsDirect() && key.Involves(actor.ID)
}

func CanSendToGroup(actor usermodel.Actor, g *chatmodel.Group) bool {
	return g.HasMember(actor.ID)
}

// CanViewGroup gates group history.
func CanViewGroup(actor usermodel.Actor, g *chatmodel.Group) bool {
	return g.HasMember(actor.ID)
}

// CanManageGroup: the creator or a moderator edits membership.
func CanManageGroup(actor usermodel.Actor, g *chatmodel.Group) bool {
	return actor.IsModerator() || g.CreatedBy == actor.ID
}

// CanReadReceipt: only a recipient may mark a message read, never its sender.
// members is the group's current member list; ignored for direct messages.
func CanReadReceipt(actor usermodel.Actor, m *chatmodel.Message, members []string) bool {
	if m.SenderID == actor.ID {
		return false
	}
	if m.IsGroup() {
		return slices.Contains(members, actor.ID)
	}
	return m.ReceiverID == actor.ID
}

// HiddenFor returns who joins m's deleted-for set. For a group message
// members must be the membership snapshot taken at action time.
func HiddenFor(actor usermodel.Actor, m *chatmodel.Message, scope chatmodel.DeleteScope, members []string) []string {
	if scope == chatmodel.DeleteForMe {
		return []string{actor.ID}
	}
	if m.IsGroup() {
		return uniq(members)
	}
	return uniq([]string{m.SenderID, m.ReceiverID})
}

// ===== plans =====

// ForSend targets the receiver, or every group member but the sender.
func ForSend(v chatmodel.MessageView, members []string) Plan {
	var targets []string
	if v.IsGroup() {
		for _, m := range uniq(members) {
			if m != v.SenderID {
				targets = append(targets, m)
			}
		}
	} else {
		targets = []string{v.ReceiverID}
	}
	if len(targets) == 0 {
		return nil
	}
	return Plan{{Targets: targets, Event: chatmodel.EventMessageArrived, Payload: v}}
}

// ForDelete produces one messages-deleted per affected user, listing every id
// of the batch that user must drop. hidden maps message id to its HiddenFor set.
func ForDelete(msgs []*chatmodel.Message, hidden map[string][]string) Plan {
	perUser := make(map[string][]string)
	for _, m := range msgs {
		for _, u := range hidden[m.ID] {
			if !slices.Contains(perUser[u], m.ID) {
				perUser[u] = append(perUser[u], m.ID)
			}
		}
	}
	users := make([]string, 0, len(perUser))
	for u := range perUser {
		users = append(users, u)
	}
	sort.Strings(users)

	plan := make(Plan, 0, len(users))
	for _, u := range users {
		plan = append(plan, Delivery{Targets: []string{u}, Event: chatmodel.EventMessagesDeleted, Payload: perUser[u]})
	}
	return plan
}

// ForClear notifies the other participant only.
func ForClear(actor usermodel.Actor, partnerID string) Plan {
	return Plan{{
		Targets: []string{partnerID},
		Event:   chatmodel.EventChatCleared,
		Payload: chatmodel.ChatCleared{UserID: actor.ID, ChatPartnerID: partnerID},
	}}
}

// ForRead reports each transitioned message to its sender.
func ForRead(transitioned []*chatmodel.Message) Plan {
	plan := make(Plan, 0, len(transitioned))
	for _, m := range transitioned {
		plan = append(plan, Delivery{
			Targets: []string{m.SenderID},
			Event:   chatmodel.EventMessageStatusUpdated,
			Payload: chatmodel.StatusUpdate{MessageID: m.ID, Status: chatmodel.StatusRead},
		})
	}
	return plan
}

func uniq(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
