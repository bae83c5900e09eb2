package model

import "time"

const UserTableName = "users"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) Role {
	switch Role(s) {
	case RoleTeacher, RoleAdmin:
		return Role(s)
	default:
		return RoleStudent
	}
}

// IsModerator reports the elevated privilege used by delete authorization.
func (r Role) IsModerator() bool { return r == RoleAdmin }

// User 用户主档（只读；注册/登录在别处）
type User struct {
	ID         string    `bson:"_id" json:"_id"`
	FullName   string    `bson:"fullName" json:"fullName"`
	Email      string    `bson:"email" json:"email"`
	ProfilePic string    `bson:"profilePic" json:"profilePic"`
	Role       Role      `bson:"role" json:"role"`
	IsBanned   bool      `bson:"isBanned" json:"isBanned"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// Summary is the display subset attached to message payloads and the sidebar.
type Summary struct {
	ID         string `bson:"_id" json:"_id"`
	FullName   string `bson:"fullName" json:"fullName"`
	ProfilePic string `bson:"profilePic" json:"profilePic"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic}
}

// Actor is the authenticated identity performing an action.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsModerator() bool { return a.Role.IsModerator() }
