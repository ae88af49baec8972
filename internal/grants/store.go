// Package grants is an in-memory role assignment store, optionally backed by persisters
package grants

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/types"
)

var _ types.RoleStore = (*Store)(nil)

// Store holds direct grants to users and roles, and user-role assignments.
// A user holds a permission granted to it directly or to any of its roles.
type Store struct {
	grants     types.Grants
	membership types.Membership
	log        logr.Logger
}

// New creates a store, nil persisters keep policies in memory only.
// Changes made by others through the persisters are followed until ctx is done.
func New(ctx context.Context, gp types.GrantPersister, mp types.MembershipPersister, l logr.Logger) (*Store, error) {
	s := &Store{log: l}

	if gp != nil {
		g, e := newPersistedGrants(ctx, gp, l.WithName("grants"))
		if e != nil {
			return nil, fmt.Errorf("init grants failed: %w", e)
		}
		s.grants = g
	} else {
		s.grants = newSyncedGrants(newThinGrants())
	}

	if mp != nil {
		m, e := newPersistedMembership(ctx, mp, l.WithName("membership"))
		if e != nil {
			return nil, fmt.Errorf("init membership failed: %w", e)
		}
		s.membership = m
	} else {
		s.membership = newSyncedMembership(newThinMembership())
	}

	return s, nil
}

// HasPermission implements types.RoleAssignmentStore
func (s *Store) HasPermission(sub types.Subject, perm types.Permission) (bool, error) {
	if types.Anonymous(sub) {
		return false, nil
	}

	held, e := s.grants.Holds(sub, perm)
	if e != nil || held {
		return held, e
	}

	user, ok := sub.(types.User)
	if !ok {
		return false, nil
	}
	roles, e := s.membership.RolesOf(user)
	if e != nil {
		return false, e
	}
	for role := range roles {
		held, e := s.grants.Holds(role, perm)
		if e != nil || held {
			return held, e
		}
	}

	return false, nil
}

// RolesOf implements types.MembershipReader
func (s *Store) RolesOf(user types.User) (map[types.Role]struct{}, error) {
	return s.membership.RolesOf(user)
}

// MembersOf returns users assigned to role
func (s *Store) MembersOf(role types.Role) (map[types.User]struct{}, error) {
	return s.membership.MembersOf(role)
}

// HoldersOf returns subjects perm is granted to directly
func (s *Store) HoldersOf(perm types.Permission) (map[types.Subject]struct{}, error) {
	return s.grants.HoldersOf(perm)
}

// GivePermission implements types.RoleStore
func (s *Store) GivePermission(sub types.Subject, perms ...types.Permission) error {
	if types.Anonymous(sub) {
		return types.ErrInvalidSubject
	}
	for _, perm := range perms {
		if e := s.grants.Grant(sub, perm); e != nil {
			return fmt.Errorf("grant %s to %s: %w", perm, sub, e)
		}
	}
	return nil
}

// RevokePermission implements types.RoleStore
func (s *Store) RevokePermission(sub types.Subject, perms ...types.Permission) error {
	for _, perm := range perms {
		if e := s.grants.Revoke(sub, perm); e != nil {
			return fmt.Errorf("revoke %s from %s: %w", perm, sub, e)
		}
	}
	return nil
}

// AssignRole implements types.RoleStore
func (s *Store) AssignRole(user types.User, roles ...types.Role) error {
	if user == "" {
		return types.ErrInvalidSubject
	}
	for _, role := range roles {
		if role == "" {
			return types.ErrInvalidSubject
		}
		if e := s.membership.Join(user, role); e != nil {
			return fmt.Errorf("assign %s to %s: %w", role, user, e)
		}
	}
	return nil
}

// UnassignRole implements types.RoleStore
func (s *Store) UnassignRole(user types.User, roles ...types.Role) error {
	for _, role := range roles {
		if e := s.membership.Leave(user, role); e != nil {
			return fmt.Errorf("unassign %s from %s: %w", role, user, e)
		}
	}
	return nil
}

// PermissionsOf implements types.RoleStore
func (s *Store) PermissionsOf(sub types.Subject) (map[types.Permission]struct{}, error) {
	perms, e := s.grants.GrantsOf(sub)
	if e != nil {
		return nil, e
	}

	user, ok := sub.(types.User)
	if !ok {
		return perms, nil
	}
	roles, e := s.membership.RolesOf(user)
	if e != nil {
		return nil, e
	}
	for role := range roles {
		inherited, e := s.grants.GrantsOf(role)
		if e != nil {
			return nil, e
		}
		for perm := range inherited {
			perms[perm] = struct{}{}
		}
	}

	return perms, nil
}

// RemoveUser implements types.RoleStore
func (s *Store) RemoveUser(user types.User) error {
	s.log.V(4).Info("remove user", "user", user)
	if e := s.revokeAll(user); e != nil {
		return e
	}
	return s.membership.RemoveUser(user)
}

// RemoveRole implements types.RoleStore
func (s *Store) RemoveRole(role types.Role) error {
	s.log.V(4).Info("remove role", "role", role)
	if e := s.revokeAll(role); e != nil {
		return e
	}
	return s.membership.RemoveRole(role)
}

func (s *Store) revokeAll(sub types.Subject) error {
	perms, e := s.grants.GrantsOf(sub)
	if e != nil {
		return e
	}
	for perm := range perms {
		if e := s.grants.Revoke(sub, perm); e != nil {
			return e
		}
	}
	return nil
}
