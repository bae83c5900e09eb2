package message

import (
	"context"
	"errors"

	"github.com/Anuragsahu418/EDUCHAT/data/database/mgo/mongoutil"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	MsgColl *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{MsgColl: db.Collection(chatmodel.MsgTableName)}
}

// EnsureIndexes 会话查询按 convKey + createdAt
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(chatmodel.MsgTableName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "convKey", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "senderId", Value: 1}}},
	})
	return errs.Persistence(err, "ensure message indexes")
}

func (s *MongoStore) Save(ctx context.Context, m *chatmodel.Message) error {
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	m.ConvKey = m.Key().String()
	_, err := s.MsgColl.InsertOne(ctx, m)
	return mongoutil.InsertErr(err, "message", m.ID)
}

func (s *MongoStore) FindByIDs(ctx context.Context, ids []string) ([]*chatmodel.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.MsgColl.Find(ctx, idsFilter(ids))
	if err != nil {
		return nil, errs.Persistence(err, "find messages")
	}
	var out []*chatmodel.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Persistence(err, "decode messages")
	}
	return out, nil
}

func (s *MongoStore) AddDeletedFor(ctx context.Context, id string, userIDs []string) error {
	res, err := s.MsgColl.UpdateOne(ctx, bson.M{"_id": id}, addDeletedForUpdate(userIDs))
	if err != nil {
		return errs.Persistence(err, "update deletedFor")
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("message", "id", id)
	}
	return nil
}

func (s *MongoStore) MarkRead(ctx context.Context, id string) (*chatmodel.Message, bool, error) {
	var m chatmodel.Message
	err := s.MsgColl.FindOneAndUpdate(ctx,
		unreadFilter(id),
		bson.M{"$set": bson.M{"status": chatmodel.StatusRead}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Persistence(err, "mark read")
	}
	return &m, true, nil
}

func (s *MongoStore) DeleteDirect(ctx context.Context, a, b string) (int64, error) {
	res, err := s.MsgColl.DeleteMany(ctx, directPairFilter(a, b))
	if err != nil {
		return 0, errs.Persistence(err, "delete direct messages")
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) FindByConversation(ctx context.Context, key chatmodel.ConversationKey, viewer string) ([]*chatmodel.Message, error) {
	cur, err := s.MsgColl.Find(ctx, conversationFilter(key, viewer),
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errs.Persistence(err, "find conversation")
	}
	out := make([]*chatmodel.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Persistence(err, "decode conversation")
	}
	return out, nil
}

// ===== filters =====

func idsFilter(ids []string) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}}
}

func unreadFilter(id string) bson.M {
	return bson.M{"_id": id, "status": bson.M{"$ne": chatmodel.StatusRead}}
}

func addDeletedForUpdate(userIDs []string) bson.M {
	return bson.M{"$addToSet": bson.M{"deletedFor": bson.M{"$each": userIDs}}}
}

// directPairFilter 只匹配单聊（群消息没有 receiverId）
func directPairFilter(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
}

func conversationFilter(key chatmodel.ConversationKey, viewer string) bson.M {
	return bson.M{
		"convKey":    key.String(),
		"deletedFor": bson.M{"$ne": viewer},
	}
}
