package grants

import (
	"sync"

	"github.com/supremind/authorizable/types"
)

var (
	_ types.Grants     = (*syncedGrants)(nil)
	_ types.Membership = (*syncedMembership)(nil)
)

// syncedGrants makes the inner grants be safe in concurrent usages
type syncedGrants struct {
	g types.Grants
	sync.RWMutex
}

func newSyncedGrants(g types.Grants) *syncedGrants {
	return &syncedGrants{g: g}
}

func (g *syncedGrants) Grant(sub types.Subject, perm types.Permission) error {
	g.Lock()
	defer g.Unlock()
	return g.g.Grant(sub, perm)
}

func (g *syncedGrants) Revoke(sub types.Subject, perm types.Permission) error {
	g.Lock()
	defer g.Unlock()
	return g.g.Revoke(sub, perm)
}

func (g *syncedGrants) Holds(sub types.Subject, perm types.Permission) (bool, error) {
	g.RLock()
	defer g.RUnlock()
	return g.g.Holds(sub, perm)
}

func (g *syncedGrants) GrantsOf(sub types.Subject) (map[types.Permission]struct{}, error) {
	g.RLock()
	defer g.RUnlock()
	return g.g.GrantsOf(sub)
}

func (g *syncedGrants) HoldersOf(perm types.Permission) (map[types.Subject]struct{}, error) {
	g.RLock()
	defer g.RUnlock()
	return g.g.HoldersOf(perm)
}

// syncedMembership makes the inner membership be safe in concurrent usages
type syncedMembership struct {
	m types.Membership
	sync.RWMutex
}

func newSyncedMembership(m types.Membership) *syncedMembership {
	return &syncedMembership{m: m}
}

func (m *syncedMembership) Join(user types.User, role types.Role) error {
	m.Lock()
	defer m.Unlock()
	return m.m.Join(user, role)
}

func (m *syncedMembership) Leave(user types.User, role types.Role) error {
	m.Lock()
	defer m.Unlock()
	return m.m.Leave(user, role)
}

func (m *syncedMembership) RolesOf(user types.User) (map[types.Role]struct{}, error) {
	m.RLock()
	defer m.RUnlock()
	return m.m.RolesOf(user)
}

func (m *syncedMembership) MembersOf(role types.Role) (map[types.User]struct{}, error) {
	m.RLock()
	defer m.RUnlock()
	return m.m.MembersOf(role)
}

func (m *syncedMembership) RemoveUser(user types.User) error {
	m.Lock()
	defer m.Unlock()
	return m.m.RemoveUser(user)
}

func (m *syncedMembership) RemoveRole(role types.Role) error {
	m.Lock()
	defer m.Unlock()
	return m.m.RemoveRole(role)
}
