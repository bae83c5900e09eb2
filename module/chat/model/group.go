package model

import (
	"slices"
	"time"
)

const GroupTableName = "groups"

// Group 群元数据 + 当前成员列表。
type Group struct {
	ID        string    `bson:"_id" json:"_id"`
	Name      string    `bson:"name" json:"name"`
	Members   []string  `bson:"members" json:"members"`
	CreatedBy string    `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (g *Group) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}
