package grants

import (
	"fmt"

	"github.com/supremind/authorizable/types"
)

var (
	_ types.Grants     = (*thinGrants)(nil)
	_ types.Membership = (*thinMembership)(nil)
)

// thinGrants knows only direct subject-permission relationships
type thinGrants struct {
	bySubject    map[types.Subject]map[types.Permission]struct{}
	byPermission map[types.Permission]map[types.Subject]struct{}
}

func newThinGrants() *thinGrants {
	return &thinGrants{
		bySubject:    make(map[types.Subject]map[types.Permission]struct{}),
		byPermission: make(map[types.Permission]map[types.Subject]struct{}),
	}
}

func (g *thinGrants) Grant(sub types.Subject, perm types.Permission) error {
	if g.bySubject[sub] == nil {
		g.bySubject[sub] = make(map[types.Permission]struct{})
	}
	g.bySubject[sub][perm] = struct{}{}

	if g.byPermission[perm] == nil {
		g.byPermission[perm] = make(map[types.Subject]struct{})
	}
	g.byPermission[perm][sub] = struct{}{}

	return nil
}

func (g *thinGrants) Revoke(sub types.Subject, perm types.Permission) error {
	if _, ok := g.bySubject[sub][perm]; !ok {
		return fmt.Errorf("%w: grant %s to %s", types.ErrNotFound, perm, sub)
	}

	delete(g.bySubject[sub], perm)
	if len(g.bySubject[sub]) == 0 {
		delete(g.bySubject, sub)
	}
	delete(g.byPermission[perm], sub)
	if len(g.byPermission[perm]) == 0 {
		delete(g.byPermission, perm)
	}

	return nil
}

func (g *thinGrants) Holds(sub types.Subject, perm types.Permission) (bool, error) {
	_, ok := g.bySubject[sub][perm]
	return ok, nil
}

func (g *thinGrants) GrantsOf(sub types.Subject) (map[types.Permission]struct{}, error) {
	perms := make(map[types.Permission]struct{}, len(g.bySubject[sub]))
	for perm := range g.bySubject[sub] {
		perms[perm] = struct{}{}
	}
	return perms, nil
}

func (g *thinGrants) HoldersOf(perm types.Permission) (map[types.Subject]struct{}, error) {
	subs := make(map[types.Subject]struct{}, len(g.byPermission[perm]))
	for sub := range g.byPermission[perm] {
		subs[sub] = struct{}{}
	}
	return subs, nil
}

// thinMembership knows direct user-role assignments, roles are not nested
type thinMembership struct {
	byUser map[types.User]map[types.Role]struct{}
	byRole map[types.Role]map[types.User]struct{}
}

func newThinMembership() *thinMembership {
	return &thinMembership{
		byUser: make(map[types.User]map[types.Role]struct{}),
		byRole: make(map[types.Role]map[types.User]struct{}),
	}
}

func (m *thinMembership) Join(user types.User, role types.Role) error {
	if m.byUser[user] == nil {
		m.byUser[user] = make(map[types.Role]struct{}, 1)
	}
	m.byUser[user][role] = struct{}{}

	if m.byRole[role] == nil {
		m.byRole[role] = make(map[types.User]struct{})
	}
	m.byRole[role][user] = struct{}{}

	return nil
}

func (m *thinMembership) Leave(user types.User, role types.Role) error {
	if _, ok := m.byUser[user][role]; !ok {
		return fmt.Errorf("%w: %s in %s", types.ErrNotFound, user, role)
	}

	delete(m.byUser[user], role)
	if len(m.byUser[user]) == 0 {
		delete(m.byUser, user)
	}
	delete(m.byRole[role], user)
	if len(m.byRole[role]) == 0 {
		delete(m.byRole, role)
	}

	return nil
}

func (m *thinMembership) RolesOf(user types.User) (map[types.Role]struct{}, error) {
	roles := make(map[types.Role]struct{}, len(m.byUser[user]))
	for role := range m.byUser[user] {
		roles[role] = struct{}{}
	}
	return roles, nil
}

func (m *thinMembership) MembersOf(role types.Role) (map[types.User]struct{}, error) {
	users := make(map[types.User]struct{}, len(m.byRole[role]))
	for user := range m.byRole[role] {
		users[user] = struct{}{}
	}
	return users, nil
}

func (m *thinMembership) RemoveUser(user types.User) error {
	for role := range m.byUser[user] {
		delete(m.byRole[role], user)
		if len(m.byRole[role]) == 0 {
			delete(m.byRole, role)
		}
	}
	delete(m.byUser, user)
	return nil
}

func (m *thinMembership) RemoveRole(role types.Role) error {
	for user := range m.byRole[role] {
		delete(m.byUser[user], role)
		if len(m.byUser[user]) == 0 {
			delete(m.byUser, user)
		}
	}
	delete(m.byRole, role)
	return nil
}
