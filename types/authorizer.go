package types

import "context"

// Engine is the top level interface for end use.
// It decides if a subject may invoke a handler method, before the method body runs.
type Engine interface {
	// Authorize returns nil if sub may perform inv on h,
	// an *AuthorizationError if not, or another error if the decision could not be made
	Authorize(ctx context.Context, h Handler, inv Invocation, sub Subject) error

	// Explain describes how inv on h would be authorized for sub
	Explain(ctx context.Context, h Handler, inv Invocation, sub Subject) AuthorizationInfo

	// PermissionFor returns the standard permission required by inv on h, false if there is none
	PermissionFor(ctx context.Context, h Handler, inv Invocation) (Permission, bool)

	// Purge drops all resolved permissions from the cache
	Purge(ctx context.Context) error

	// Catalog returns the permissions currently known
	Catalog() *Catalog
	// SetCatalog replaces the known permissions, a nil catalog is ignored
	SetCatalog(c *Catalog)
}

// Handler is the authorization declaration of one request handler, like a controller.
// Handlers are immutable once built.
type Handler interface {
	// Name is the handler type identity, like "UserController"
	Name() string

	// Rule returns the kind of rule applied to method
	Rule(method string) RuleKind
	// Custom returns the custom hook registered for method
	Custom(method string) CustomAuthorizer
	// AnyOf returns the raw permissions of which one is required for method
	AnyOf(method string) []string
	// AllOf returns the raw permissions all required for method
	AllOf(method string) []string

	// AbilityFor looks method up in the ability map
	AbilityFor(method string) (Ability, bool)
	// Abilities returns a copy of the ability map
	Abilities() map[string]Ability

	// ResourceName returns the resource inv operates on
	ResourceName(inv Invocation) string
	// Convention is fixed for the lifetime of the handler
	Convention() Convention
	// Fingerprint changes whenever anything affecting standard permissions changes
	Fingerprint() string
	// Cached tells if resolved permissions of this handler could be cached
	Cached() bool
}

// RoleAssignmentStore tells if a subject holds a permission, directly or through roles
type RoleAssignmentStore interface {
	HasPermission(sub Subject, perm Permission) (bool, error)
}

// PermissionCheckerFunc is an adapter to use ordinary functions as RoleAssignmentStore
type PermissionCheckerFunc func(sub Subject, perm Permission) (bool, error)

// HasPermission implements RoleAssignmentStore
func (f PermissionCheckerFunc) HasPermission(sub Subject, perm Permission) (bool, error) {
	return f(sub, perm)
}

// Resolution is a cached result of permission resolution
type Resolution struct {
	Permission Permission
	// Required is false if no standard permission applies
	Required bool
}

// ResolutionCache stores resolved permissions with a bounded lifetime
type ResolutionCache interface {
	// Load returns the resolution stored under key, false on a miss
	Load(ctx context.Context, key string) (Resolution, bool, error)
	// Store saves r under key
	Store(ctx context.Context, key string, r Resolution) error
	// Purge drops every resolution
	Purge(ctx context.Context) error
}

// AuthorizationInfo describes how an invocation is authorized, for debugging
type AuthorizationInfo struct {
	Handler       string       `json:"handler" yaml:"handler"`
	Method        string       `json:"method" yaml:"method"`
	Resource      string       `json:"resource" yaml:"resource"`
	Rule          string       `json:"rule" yaml:"rule"`
	Public        bool         `json:"is_public" yaml:"is_public"`
	Custom        bool         `json:"has_custom_auth" yaml:"has_custom_auth"`
	AnyOf         []Permission `json:"multiple_permissions,omitempty" yaml:"multiple_permissions,omitempty"`
	AllOf         []Permission `json:"required_permissions,omitempty" yaml:"required_permissions,omitempty"`
	Standard      Permission   `json:"standard_permission,omitempty" yaml:"standard_permission,omitempty"`
	Authenticated bool         `json:"user_authenticated" yaml:"user_authenticated"`
	Subject       string       `json:"subject,omitempty" yaml:"subject,omitempty"`
}
