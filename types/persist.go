package types

import "context"

// GrantPersister persists subject-permission grant polices to an external storage
type GrantPersister interface {
	// Insert inserts a policy to the persister
	Insert(Subject, Permission) error

	// Remove a policy from the persister
	Remove(Subject, Permission) error

	// List all policies from the persister
	List() ([]GrantPolicy, error)

	// Watch any changes occurred about the policies in the persister
	Watch(context.Context) (<-chan GrantPolicyChange, error)
}

// MembershipPersister persists user-role assignment polices to an external storage
type MembershipPersister interface {
	// Insert inserts a policy to the persister
	Insert(User, Role) error

	// Remove a policy from the persister
	Remove(User, Role) error

	// List all policies from the persister
	List() ([]MembershipPolicy, error)

	// Watch any changes occurred about the policies in the persister
	Watch(context.Context) (<-chan MembershipPolicyChange, error)
}

// GrantPolicy is a subject-permission grant policy
type GrantPolicy struct {
	Subject    Subject
	Permission Permission
}

// GrantPolicyChange denotes an changing event about a GrantPolicy
type GrantPolicyChange struct {
	GrantPolicy
	Method PersistMethod
}

// MembershipPolicy is a user-role assignment policy
type MembershipPolicy struct {
	User User
	Role Role
}

// MembershipPolicyChange denotes an changing event about a MembershipPolicy
type MembershipPolicyChange struct {
	MembershipPolicy
	Method PersistMethod
}

// PersistMethod defines what happened about the policies
type PersistMethod string

// possible changes could be happened about policies
const (
	PersistInsert PersistMethod = "insert"
	PersistDelete PersistMethod = "delete"
)
