package types

import (
	"fmt"
	"strings"
)

// Permission is a concrete, resource qualified right, like "users_view" or "users.view"
type Permission string

// permissions of the default catalog
const (
	UsersView    Permission = "users_view"
	UsersCreate  Permission = "users_create"
	UsersEdit    Permission = "users_edit"
	UsersDelete  Permission = "users_delete"
	UsersRestore Permission = "users_restore"
)

func (p Permission) String() string {
	return string(p)
}

// Qualified tells if p already carries a resource, that is it contains a separator
func (p Permission) Qualified() bool {
	return strings.ContainsAny(string(p), FlatSeparator+DottedSeparator)
}

// Catalog is the closed set of permissions known to an engine.
// A Catalog is immutable once created and safe for concurrent use.
type Catalog struct {
	ordered []Permission
	set     map[Permission]struct{}
}

// NewCatalog creates a catalog from the given permission names, duplicates are ignored
func NewCatalog(names ...string) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]Permission, 0, len(names)),
		set:     make(map[Permission]struct{}, len(names)),
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty permission name in catalog", ErrConfiguration)
		}
		p := Permission(name)
		if _, ok := c.set[p]; ok {
			continue
		}
		c.set[p] = struct{}{}
		c.ordered = append(c.ordered, p)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on error
func MustCatalog(names ...string) *Catalog {
	c, e := NewCatalog(names...)
	if e != nil {
		panic(e)
	}
	return c
}

// DefaultCatalog holds the user management permissions
func DefaultCatalog() *Catalog {
	return MustCatalog(
		string(UsersView),
		string(UsersCreate),
		string(UsersEdit),
		string(UsersDelete),
		string(UsersRestore),
	)
}

// Has tells if p is in the catalog
func (c *Catalog) Has(p Permission) bool {
	if c == nil {
		return false
	}
	_, ok := c.set[p]
	return ok
}

// Parse returns the permission named s, or ErrUnknownPermission if it is not in the catalog
func (c *Catalog) Parse(s string) (Permission, error) {
	p := Permission(s)
	if !c.Has(p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, s)
	}
	return p, nil
}

// Permissions returns all permissions in declaration order
func (c *Catalog) Permissions() []Permission {
	if c == nil {
		return nil
	}
	out := make([]Permission, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of permissions in the catalog
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}
