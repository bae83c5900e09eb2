package user

import (
	"context"
	"errors"
	"sort"
	"sync"

	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Directory is the read-only user collaborator.
type Directory interface {
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
	// Summaries resolves display fields; unknown ids are left out of the map.
	Summaries(ctx context.Context, ids []string) (map[string]usermodel.Summary, error)
	ListExcept(ctx context.Context, id string) ([]usermodel.Summary, error)
}

var summaryProjection = bson.M{"_id": 1, "fullName": 1, "profilePic": 1}

type MongoDirectory struct {
	Coll *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{Coll: db.Collection(usermodel.UserTableName)}
}

func (d *MongoDirectory) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	var u usermodel.User
	err := d.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WrapMsg("user", "id", id)
	}
	if err != nil {
		return nil, errs.Persistence(err, "find user")
	}
	return &u, nil
}

func (d *MongoDirectory) Summaries(ctx context.Context, ids []string) (map[string]usermodel.Summary, error) {
	out := make(map[string]usermodel.Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := d.Coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, errs.Persistence(err, "find users")
	}
	var list []usermodel.Summary
	if err := cur.All(ctx, &list); err != nil {
		return nil, errs.Persistence(err, "decode users")
	}
	for _, s := range list {
		out[s.ID] = s
	}
	return out, nil
}

func (d *MongoDirectory) ListExcept(ctx context.Context, id string) ([]usermodel.Summary, error) {
	cur, err := d.Coll.Find(ctx, bson.M{"_id": bson.M{"$ne": id}},
		options.Find().SetProjection(summaryProjection).SetSort(bson.M{"fullName": 1}))
	if err != nil {
		return nil, errs.Persistence(err, "list users")
	}
	out := make([]usermodel.Summary, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Persistence(err, "decode users")
	}
	return out, nil
}

// MemDirectory 内存实现（memory 驱动 / 测试）
type MemDirectory struct {
	mu    sync.RWMutex
	users map[string]usermodel.User
}

func NewMemDirectory(users ...usermodel.User) *MemDirectory {
	d := &MemDirectory{users: make(map[string]usermodel.User)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

func (d *MemDirectory) Put(u usermodel.User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

func (d *MemDirectory) FindByID(_ context.Context, id string) (*usermodel.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("user", "id", id)
	}
	return &u, nil
}

func (d *MemDirectory) Summaries(_ context.Context, ids []string) (map[string]usermodel.Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]usermodel.Summary, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func (d *MemDirectory) ListExcept(_ context.Context, id string) ([]usermodel.Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]usermodel.Summary, 0, len(d.users))
	for uid, u := range d.users {
		if uid != id {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}
