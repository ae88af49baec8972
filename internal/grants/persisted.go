package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/internal/persist/filter"
	"github.com/supremind/authorizable/types"
)

var (
	_ types.Grants     = (*persistedGrants)(nil)
	_ types.Membership = (*persistedMembership)(nil)
)

// persistedGrants persists grants of the inner grants, and follows changes made by others
type persistedGrants struct {
	persist types.GrantPersister
	types.Grants
	log logr.Logger
}

func newPersistedGrants(ctx context.Context, persist types.GrantPersister, l logr.Logger) (*persistedGrants, error) {
	g := &persistedGrants{
		persist: filter.NewGrantPersister(persist),
		Grants:  newSyncedGrants(newThinGrants()),
		log:     l,
	}
	if e := g.loadPersisted(); e != nil {
		return nil, e
	}
	if e := g.startWatching(ctx); e != nil {
		return nil, e
	}

	return g, nil
}

func (g *persistedGrants) loadPersisted() error {
	g.log.V(4).Info("load persisted grants")

	polices, e := g.persist.List()
	if e != nil {
		return e
	}
	for _, policy := range polices {
		if e := g.Grants.Grant(policy.Subject, policy.Permission); e != nil {
			return e
		}
	}
	return nil
}

func (g *persistedGrants) startWatching(ctx context.Context) error {
	changes, e := g.persist.Watch(ctx)
	if e != nil {
		return e
	}

	go func() {
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					g.log.V(4).Info("grant changes closed")
					return
				}
				if e := g.coordinateChange(change); e != nil {
					g.log.Error(e, "coordinate grant changes")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (g *persistedGrants) coordinateChange(change types.GrantPolicyChange) error {
	g.log.V(4).Info("coordinate grant changes", "change", change)

	switch change.Method {
	case types.PersistInsert:
		return g.Grants.Grant(change.Subject, change.Permission)
	case types.PersistDelete:
		held, e := g.Grants.Holds(change.Subject, change.Permission)
		if e != nil || !held {
			return e
		}
		return g.Grants.Revoke(change.Subject, change.Permission)
	}

	return fmt.Errorf("%w: grant persister changes: %s", types.ErrUnsupportedChange, change.Method)
}

func (g *persistedGrants) Grant(sub types.Subject, perm types.Permission) error {
	g.log.V(4).Info("grant", "subject", sub, "permission", perm)

	held, e := g.Grants.Holds(sub, perm)
	if e != nil || held {
		return e
	}
	if e := g.persist.Insert(sub, perm); e != nil && !errors.Is(e, types.ErrAlreadyExists) {
		return e
	}
	return g.Grants.Grant(sub, perm)
}

func (g *persistedGrants) Revoke(sub types.Subject, perm types.Permission) error {
	g.log.V(4).Info("revoke", "subject", sub, "permission", perm)

	if e := g.persist.Remove(sub, perm); e != nil && !errors.Is(e, types.ErrNotFound) {
		return e
	}
	return g.Grants.Revoke(sub, perm)
}

// persistedMembership persists role assignments of the inner membership, and follows changes made by others
type persistedMembership struct {
	persist types.MembershipPersister
	types.Membership
	log logr.Logger
}

func newPersistedMembership(ctx context.Context, persist types.MembershipPersister, l logr.Logger) (*persistedMembership, error) {
	m := &persistedMembership{
		persist:    filter.NewMembershipPersister(persist),
		Membership: newSyncedMembership(newThinMembership()),
		log:        l,
	}
	if e := m.loadPersisted(); e != nil {
		return nil, e
	}
	if e := m.startWatching(ctx); e != nil {
		return nil, e
	}

	return m, nil
}

func (m *persistedMembership) loadPersisted() error {
	m.log.V(4).Info("load persisted role assignments")

	polices, e := m.persist.List()
	if e != nil {
		return e
	}
	for _, policy := range polices {
		if e := m.Membership.Join(policy.User, policy.Role); e != nil {
			return e
		}
	}
	return nil
}

func (m *persistedMembership) startWatching(ctx context.Context) error {
	changes, e := m.persist.Watch(ctx)
	if e != nil {
		return e
	}

	go func() {
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					m.log.V(4).Info("membership changes closed")
					return
				}
				if e := m.coordinateChange(change); e != nil {
					m.log.Error(e, "coordinate membership changes")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (m *persistedMembership) coordinateChange(change types.MembershipPolicyChange) error {
	m.log.V(4).Info("coordinate membership changes", "change", change)

	switch change.Method {
	case types.PersistInsert:
		return m.Membership.Join(change.User, change.Role)
	case types.PersistDelete:
		roles, e := m.Membership.RolesOf(change.User)
		if e != nil {
			return e
		}
		if _, ok := roles[change.Role]; !ok {
			return nil
		}
		return m.Membership.Leave(change.User, change.Role)
	}

	return fmt.Errorf("%w: membership persister changes: %s", types.ErrUnsupportedChange, change.Method)
}

func (m *persistedMembership) Join(user types.User, role types.Role) error {
	m.log.V(4).Info("join", "user", user, "role", role)

	roles, e := m.Membership.RolesOf(user)
	if e != nil {
		return e
	}
	if _, ok := roles[role]; ok {
		return nil
	}
	if e := m.persist.Insert(user, role); e != nil && !errors.Is(e, types.ErrAlreadyExists) {
		return e
	}
	return m.Membership.Join(user, role)
}

func (m *persistedMembership) Leave(user types.User, role types.Role) error {
	m.log.V(4).Info("leave", "user", user, "role", role)

	if e := m.persist.Remove(user, role); e != nil && !errors.Is(e, types.ErrNotFound) {
		return e
	}
	return m.Membership.Leave(user, role)
}

func (m *persistedMembership) RemoveUser(user types.User) error {
	m.log.V(4).Info("remove user", "user", user)

	roles, e := m.Membership.RolesOf(user)
	if e != nil {
		return e
	}
	for role := range roles {
		if e := m.persist.Remove(user, role); e != nil && !errors.Is(e, types.ErrNotFound) {
			return e
		}
	}
	return m.Membership.RemoveUser(user)
}

func (m *persistedMembership) RemoveRole(role types.Role) error {
	m.log.V(4).Info("remove role", "role", role)

	users, e := m.Membership.MembersOf(role)
	if e != nil {
		return e
	}
	for user := range users {
		if e := m.persist.Remove(user, role); e != nil && !errors.Is(e, types.ErrNotFound) {
			return e
		}
	}
	return m.Membership.RemoveRole(role)
}
