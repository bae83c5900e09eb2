package service

import (
	"context"
	"strings"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/fanout"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"go.uber.org/zap"
)

// CreateGroup creates a group owned by actor; the creator is always a member.
func (s *Service) CreateGroup(ctx context.Context, actor usermodel.Actor, name string, memberIDs []string) (*chatmodel.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrBadRequest.WrapMsg("group name required")
	}
	members := dedupe(append([]string{actor.ID}, memberIDs...))
	known, err := s.users.Summaries(ctx, members[1:])
	if err != nil {
		return nil, err
	}
	for _, id := range members[1:] {
		if _, ok := known[id]; !ok {
			return nil, errs.ErrNotFound.WrapMsg("user", "id", id)
		}
	}

	g := &chatmodel.Group{
		ID:        s.newID(),
		Name:      name,
		Members:   members,
		CreatedBy: actor.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	logger.Info("group created", zap.String("group", g.ID), zap.Int("members", len(members)))
	return g, nil
}

func (s *Service) AddMember(ctx context.Context, actor usermodel.Actor, groupID, userID string) error {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !fanout.CanManageGroup(actor, g) {
		return errs.ErrUnauthorized.WrapMsg("cannot manage group", "group", groupID)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.groups.AddMember(ctx, groupID, userID)
}

// RemoveMember: managers remove anyone, members may remove themselves.
func (s *Service) RemoveMember(ctx context.Context, actor usermodel.Actor, groupID, userID string) error {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if userID != actor.ID && !fanout.CanManageGroup(actor, g) {
		return errs.ErrUnauthorized.WrapMsg("cannot manage group", "group", groupID)
	}
	if !g.HasMember(userID) {
		return errs.ErrNotFound.WrapMsg("member", "group", groupID, "user", userID)
	}
	return s.groups.RemoveMember(ctx, groupID, userID)
}

func (s *Service) Groups(ctx context.Context, actor usermodel.Actor) ([]*chatmodel.Group, error) {
	return s.groups.ListForUser(ctx, actor.ID)
}
