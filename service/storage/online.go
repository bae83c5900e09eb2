package storage

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ===== 配置 =====
type OnlineConfig struct {
	NodeID string        // 节点ID（参与成员命名）
	TTL    time.Duration // 会话有效期；节点宕机后由过期清理兜底
	Prefix string        // key 前缀，默认 educhat:presence
}

// ===== Lua 脚本 =====

// 上线/续期一条连接
// KEYS[1] = user zset   (<prefix>:u:<userId>)，member=<node>:<connId> score=expireAt
// KEYS[2] = online set  (<prefix>:online)
// ARGV[1] = member
// ARGV[2] = expireAtUnix
// ARGV[3] = userId
// ARGV[4] = user zset ttl seconds
const luaAdd = `
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
redis.call("EXPIRE", KEYS[1], ARGV[4])
redis.call("SADD", KEYS[2], ARGV[3])
return redis.call("ZCARD", KEYS[1])
`

// 单连接下线（幂等）；用户无剩余连接时移出在线集合
// KEYS/ARGV 同上；ARGV[2] = nowUnix
// 返回：剩余连接数
const luaRemove = `
redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
local left = redis.call("ZCARD", KEYS[1])
if left == 0 then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", KEYS[2], ARGV[3])
end
return left
`

// 读取在线集合，并顺带清理过期连接
// KEYS[1] = online set
// ARGV[1] = nowUnix
// ARGV[2] = user zset key prefix (<prefix>:u:)
const luaOnline = `
local users = redis.call("SMEMBERS", KEYS[1])
local alive = {}
for _, u in ipairs(users) do
  local z = ARGV[2] .. u
  redis.call("ZREMRANGEBYSCORE", z, "-inf", ARGV[1])
  if redis.call("ZCARD", z) > 0 then
    table.insert(alive, u)
  else
    redis.call("SREM", KEYS[1], u)
  end
end
return alive
`

// OnlineStore is the presence mirror shared by every node: user -> live
// connections across the cluster.
type OnlineStore struct {
	rdb  redis.Scripter
	conf OnlineConfig
	now  func() time.Time

	luaAdd    *redis.Script
	luaRemove *redis.Script
	luaOnline *redis.Script
}

func NewOnlineStore(rdb redis.Scripter, conf OnlineConfig) *OnlineStore {
	if conf.TTL <= 0 {
		conf.TTL = 2 * time.Minute
	}
	if conf.Prefix == "" {
		conf.Prefix = "educhat:presence"
	}
	return &OnlineStore{
		rdb:       rdb,
		conf:      conf,
		now:       time.Now,
		luaAdd:    redis.NewScript(luaAdd),
		luaRemove: redis.NewScript(luaRemove),
		luaOnline: redis.NewScript(luaOnline),
	}
}

func (m *OnlineStore) userKey(userID string) string { return m.conf.Prefix + ":u:" + userID }
func (m *OnlineStore) onlineKey() string            { return m.conf.Prefix + ":online" }
func (m *OnlineStore) member(connID string) string  { return m.conf.NodeID + ":" + connID }

// Add marks one connection live (or renews it).
func (m *OnlineStore) Add(ctx context.Context, userID, connID string) error {
	ttl := int64(m.conf.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	expAt := m.now().Add(m.conf.TTL).Unix()
	return m.luaAdd.Run(ctx, m.rdb,
		[]string{m.userKey(userID), m.onlineKey()},
		m.member(connID), expAt, userID, ttl*2,
	).Err()
}

// Remove drops one connection; the user leaves the online set with its last one.
func (m *OnlineStore) Remove(ctx context.Context, userID, connID string) error {
	return m.luaRemove.Run(ctx, m.rdb,
		[]string{m.userKey(userID), m.onlineKey()},
		m.member(connID), m.now().Unix(), userID,
	).Err()
}

// Online returns the cluster-wide online users, sorted.
func (m *OnlineStore) Online(ctx context.Context) ([]string, error) {
	users, err := m.luaOnline.Run(ctx, m.rdb,
		[]string{m.onlineKey()},
		m.now().Unix(), m.conf.Prefix+":u:",
	).StringSlice()
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}
