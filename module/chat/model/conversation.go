package model

import (
	"fmt"
	"net/url"
	"strings"
)

type ConversationKind uint8

const (
	KindDirect ConversationKind = iota + 1
	KindGroup
)

const (
	directPrefix = "dm:"
	groupPrefix  = "grp:"
)

// ConversationKey 会话键：单聊是无序的用户对，群聊是群ID。
// 单聊时 A <= B，保证 Direct(a,b) == Direct(b,a)。
type ConversationKey struct {
	Kind    ConversationKind
	A, B    string
	GroupID string
}

func Direct(a, b string) ConversationKey {
	if b < a {
		a, b = b, a
	}
	return ConversationKey{Kind: KindDirect, A: a, B: b}
}

func GroupKey(id string) ConversationKey {
	return ConversationKey{Kind: KindGroup, GroupID: id}
}

func (k ConversationKey) IsGroup() bool  { return k.Kind == KindGroup }
func (k ConversationKey) IsDirect() bool { return k.Kind == KindDirect }
func (k ConversationKey) IsZero() bool   { return k.Kind == 0 }

// Involves reports whether userID is one side of a direct key.
func (k ConversationKey) Involves(userID string) bool {
	return k.IsDirect() && (k.A == userID || k.B == userID)
}

// Partner returns the other side of a direct key, or "" if userID is not on it.
func (k ConversationKey) Partner(userID string) string {
	switch {
	case !k.IsDirect():
		return ""
	case k.A == userID:
		return k.B
	case k.B == userID:
		return k.A
	}
	return ""
}

// String 编码为 dm:<a>:<b> 或 grp:<id>；各段做 query 转义，ID 中的 ':' 不会产生歧义。
func (k ConversationKey) String() string {
	switch k.Kind {
	case KindDirect:
		return directPrefix + url.QueryEscape(k.A) + ":" + url.QueryEscape(k.B)
	case KindGroup:
		return groupPrefix + url.QueryEscape(k.GroupID)
	}
	return ""
}

func ParseKey(s string) (ConversationKey, error) {
	switch {
	case strings.HasPrefix(s, directPrefix):
		ea, eb, ok := strings.Cut(strings.TrimPrefix(s, directPrefix), ":")
		a, errA := url.QueryUnescape(ea)
		b, errB := url.QueryUnescape(eb)
		if !ok || a == "" || b == "" || errA != nil || errB != nil || strings.Contains(eb, ":") {
			return ConversationKey{}, fmt.Errorf("bad direct key %q", s)
		}
		return Direct(a, b), nil
	case strings.HasPrefix(s, groupPrefix):
		id, err := url.QueryUnescape(strings.TrimPrefix(s, groupPrefix))
		if err != nil || id == "" {
			return ConversationKey{}, fmt.Errorf("bad group key %q", s)
		}
		return GroupKey(id), nil
	}
	return ConversationKey{}, fmt.Errorf("unknown conversation key %q", s)
}
