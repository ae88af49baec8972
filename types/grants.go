package types

// Grants holds direct subject-permission grants
type Grants interface {
	// Grant perm to sub
	Grant(sub Subject, perm Permission) error
	// Revoke perm from sub
	Revoke(sub Subject, perm Permission) error
	// Holds tells if perm is granted to sub directly
	Holds(sub Subject, perm Permission) (bool, error)
	// GrantsOf returns all permissions granted to sub directly
	GrantsOf(sub Subject) (map[Permission]struct{}, error)
	// HoldersOf returns all subjects perm is granted to directly
	HoldersOf(perm Permission) (map[Subject]struct{}, error)
}

// Membership holds user-role assignments
type Membership interface {
	MembershipReader

	// Join assigns user to role
	Join(user User, role Role) error
	// Leave removes user from role
	Leave(user User, role Role) error
	// MembersOf returns all users assigned to role
	MembersOf(role Role) (map[User]struct{}, error)
	// RemoveUser removes user from all roles
	RemoveUser(user User) error
	// RemoveRole removes all users from role
	RemoveRole(role Role) error
}

// MembershipReader tells which roles a user is assigned to
type MembershipReader interface {
	RolesOf(user User) (map[Role]struct{}, error)
}

// RoleStore is a RoleAssignmentStore managing grants and role assignments
type RoleStore interface {
	RoleAssignmentStore
	MembershipReader

	// GivePermission grants perms to sub, granting an already held permission is a no-op
	GivePermission(sub Subject, perms ...Permission) error
	// RevokePermission revokes direct grants of perms from sub
	RevokePermission(sub Subject, perms ...Permission) error
	// AssignRole assigns user to roles, assigning an already assigned role is a no-op
	AssignRole(user User, roles ...Role) error
	// UnassignRole removes user from roles
	UnassignRole(user User, roles ...Role) error
	// PermissionsOf returns all permissions of sub, including those held through roles
	PermissionsOf(sub Subject) (map[Permission]struct{}, error)
	// RemoveUser removes a user and all policies about it
	RemoveUser(user User) error
	// RemoveRole removes a role and all policies about it
	RemoveRole(role Role) error
}
