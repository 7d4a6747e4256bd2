package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleSensor  Role = "sensor"
)

var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleSensor}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName         string             `bson:"firstName" json:"firstName"`
	LastName          string             `bson:"lastName" json:"lastName"`
	EmailAddress      string             `bson:"emailAddress" json:"emailAddress"`
	Phone             string             `bson:"phone" json:"phone"`
	Password          string             `bson:"password,omitempty" json:"-"`
	Role              []Role             `bson:"role" json:"role"`
	Status            UserStatus         `bson:"status" json:"status"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	PasswordChangedAt *time.Time         `bson:"passwordChangedAt,omitempty" json:"passwordChangedAt,omitempty"`
	LastLoggedInAt    *time.Time         `bson:"lastLoggedInAt,omitempty" json:"lastLoggedInAt,omitempty"`
}

func (u *User) HasRole(r Role) bool {
	return slices.Contains(u.Role, r)
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// RoleStrings returns the roles as plain strings, e.g. for token claims.
func (u *User) RoleStrings() []string {
	out := make([]string, len(u.Role))
	for i, r := range u.Role {
		out[i] = string(r)
	}
	return out
}

// CanManage reports whether an actor holding actorRoles may create, modify or
// delete accounts holding targetRoles. A teacher who is not an admin cannot
// touch admin or teacher accounts; an admin cannot touch other admins.
func CanManage(actorRoles, targetRoles []Role) bool {
	isAdmin := slices.Contains(actorRoles, RoleAdmin)
	isTeacher := slices.Contains(actorRoles, RoleTeacher)

	switch {
	case isTeacher && !isAdmin:
		return !slices.Contains(targetRoles, RoleAdmin) && !slices.Contains(targetRoles, RoleTeacher)
	case isAdmin:
		return !slices.Contains(targetRoles, RoleAdmin)
	}
	return false
}

// CanAssign reports whether an actor holding actorRoles may give roles to an
// account. A teacher who is not an admin may only grant student and sensor.
func CanAssign(actorRoles, roles []Role) bool {
	if slices.Contains(actorRoles, RoleAdmin) {
		return true
	}
	if !slices.Contains(actorRoles, RoleTeacher) {
		return false
	}
	return !slices.Contains(roles, RoleAdmin) && !slices.Contains(roles, RoleTeacher)
}

// AllowedTo reports whether every role in userRoles is one of allowed.
func AllowedTo(userRoles []Role, allowed ...Role) bool {
	if len(userRoles) == 0 {
		return false
	}
	for _, r := range userRoles {
		if !slices.Contains(allowed, r) {
			return false
		}
	}
	return true
}
