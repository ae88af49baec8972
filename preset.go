package authorizable

import (
	"context"
	"fmt"
	"strings"

	"github.com/supremind/authorizable/types"
)

// Preset is a policy checked before the role assignment store, sub holds perm if it returns true
type Preset func(store types.RoleAssignmentStore, sub types.Subject, perm types.Permission) bool

// SuperUser holds every permission, a Role super user lends it to its members
func SuperUser(su types.Subject) Preset {
	return func(store types.RoleAssignmentStore, rs types.Subject, _ types.Permission) bool {
		if rs == su {
			return true
		}
		if members, ok := store.(types.MembershipReader); ok {
			if role, ok := su.(types.Role); ok {
				if user, ok := rs.(types.User); ok {
					roles, e := members.RolesOf(user)
					if e == nil {
						_, in := roles[role]
						return in
					}
				}
			}
		}

		return false
	}
}

// PublicShared grants perms to every authenticated subject
func PublicShared(perms ...types.Permission) Preset {
	shared := make(map[types.Permission]struct{}, len(perms))
	for _, p := range perms {
		shared[p] = struct{}{}
	}

	return func(_ types.RoleAssignmentStore, sub types.Subject, perm types.Permission) bool {
		_, ok := shared[perm]
		return ok && !types.Anonymous(sub)
	}
}

type storeWithPresets struct {
	presets []Preset
	types.RoleAssignmentStore
}

func withPresets(store types.RoleAssignmentStore, presets ...Preset) *storeWithPresets {
	return &storeWithPresets{
		presets:             presets,
		RoleAssignmentStore: store,
	}
}

func (s *storeWithPresets) HasPermission(sub types.Subject, perm types.Permission) (bool, error) {
	for _, p := range s.presets {
		if p(s.RoleAssignmentStore, sub, perm) {
			return true, nil
		}
	}

	return s.RoleAssignmentStore.HasPermission(sub, perm)
}

// RequireRole is a custom hook allowing only users assigned to any of roles
func RequireRole(members types.MembershipReader, roles ...types.Role) types.CustomAuthorizer {
	return func(_ context.Context, _ types.Invocation, sub types.Subject) error {
		if types.Anonymous(sub) {
			return &types.AuthorizationError{Kind: types.ErrAuthenticationRequired, Message: "Authentication required"}
		}

		switch sub := sub.(type) {
		case types.Role:
			for _, role := range roles {
				if sub == role {
					return nil
				}
			}
		case types.User:
			assigned, e := members.RolesOf(sub)
			if e != nil {
				return fmt.Errorf("roles of %s: %w", sub, e)
			}
			for _, role := range roles {
				if _, ok := assigned[role]; ok {
					return nil
				}
			}
		}

		return types.Deny("Role required: %s", joinRoles(roles))
	}
}

func joinRoles(roles []types.Role) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, ", ")
}
