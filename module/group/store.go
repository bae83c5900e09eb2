package group

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/Anuragsahu418/EDUCHAT/data/database/mgo/mongoutil"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store 群成员关系。Members 读到的是调用时刻的快照。
type Store interface {
	Create(ctx context.Context, g *chatmodel.Group) error
	FindByID(ctx context.Context, id string) (*chatmodel.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]*chatmodel.Group, error)
}

type MongoStore struct {
	Coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{Coll: db.Collection(chatmodel.GroupTableName)}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(chatmodel.GroupTableName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}},
	})
	return errs.Persistence(err, "ensure group indexes")
}

func (s *MongoStore) Create(ctx context.Context, g *chatmodel.Group) error {
	_, err := s.Coll.InsertOne(ctx, g)
	return mongoutil.InsertErr(err, "group", g.ID)
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*chatmodel.Group, error) {
	var g chatmodel.Group
	err := s.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WrapMsg("group", "id", id)
	}
	if err != nil {
		return nil, errs.Persistence(err, "find group")
	}
	return &g, nil
}

func (s *MongoStore) AddMember(ctx context.Context, groupID, userID string) error {
	return s.updateMembers(ctx, groupID, bson.M{"$addToSet": bson.M{"members": userID}})
}

func (s *MongoStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.updateMembers(ctx, groupID, bson.M{"$pull": bson.M{"members": userID}})
}

func (s *MongoStore) updateMembers(ctx context.Context, groupID string, update bson.M) error {
	res, err := s.Coll.UpdateOne(ctx, bson.M{"_id": groupID}, update)
	if err != nil {
		return errs.Persistence(err, "update group members")
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("group", "id", groupID)
	}
	return nil
}

func (s *MongoStore) ListForUser(ctx context.Context, userID string) ([]*chatmodel.Group, error) {
	cur, err := s.Coll.Find(ctx, bson.M{"members": userID})
	if err != nil {
		return nil, errs.Persistence(err, "list groups")
	}
	out := make([]*chatmodel.Group, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Persistence(err, "decode groups")
	}
	return out, nil
}

type MemStore struct {
	mu     sync.RWMutex
	groups map[string]*chatmodel.Group
}

func NewMemStore() *MemStore {
	return &MemStore{groups: make(map[string]*chatmodel.Group)}
}

func clone(g *chatmodel.Group) *chatmodel.Group {
	c := *g
	c.Members = slices.Clone(g.Members)
	return &c
}

func (s *MemStore) Create(_ context.Context, g *chatmodel.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; ok {
		return errs.ErrDuplicate.WrapMsg("group", "id", g.ID)
	}
	s.groups[g.ID] = clone(g)
	return nil
}

func (s *MemStore) FindByID(_ context.Context, id string) (*chatmodel.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("group", "id", id)
	}
	return clone(g), nil
}

func (s *MemStore) AddMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("group", "id", groupID)
	}
	if !g.HasMember(userID) {
		g.Members = append(g.Members, userID)
	}
	return nil
}

func (s *MemStore) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return errs.ErrNotFound.WrapMsg("group", "id", groupID)
	}
	g.Members = slices.DeleteFunc(g.Members, func(m string) bool { return m == userID })
	return nil
}

func (s *MemStore) ListForUser(_ context.Context, userID string) ([]*chatmodel.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*chatmodel.Group, 0)
	for _, g := range s.groups {
		if g.HasMember(userID) {
			out = append(out, clone(g))
		}
	}
	return out, nil
}
