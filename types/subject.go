package types

import "strings"

// Entity is anything could be serialized when persisting
type Entity interface {
	// String method is used to be serialized when persisting
	String() string
}

// Subject is a User or a Role holding permissions
// Subject is not expecting custom implementations
type Subject interface {
	Entity
	subject() string
}

// User is an authenticated caller, it holds permissions directly or through roles
type User string

func (u User) String() string {
	return "user:" + string(u)
}

func (u User) subject() string {
	return u.String()
}

// Role is a named set of permissions users could be assigned to
type Role string

func (r Role) String() string {
	return "role:" + string(r)
}

func (r Role) subject() string {
	return r.String()
}

// Anonymous tells if sub is absent, which means the caller is not authenticated
func Anonymous(sub Subject) bool {
	switch s := sub.(type) {
	case nil:
		return true
	case User:
		return s == ""
	case Role:
		return s == ""
	}
	return false
}

// ParseSubject parses an serialized Subject
func ParseSubject(s string) (Subject, error) {
	switch {
	case strings.HasPrefix(s, "user:"):
		return User(strings.TrimPrefix(s, "user:")), nil
	case strings.HasPrefix(s, "role:"):
		return Role(strings.TrimPrefix(s, "role:")), nil
	}

	return nil, ErrInvalidSubject
}
