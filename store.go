package authorizable

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/supremind/authorizable/internal/grants"
	"github.com/supremind/authorizable/types"
)

// NewRoleStore creates an in-memory role store,
// policies are loaded from and written to persisters if set, and changes made by others are followed until ctx is done
func NewRoleStore(ctx context.Context, opts ...StoreOption) (types.RoleStore, error) {
	cfg := &StoreConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.log == nil {
		cfg.log = defaultLogger()
	}

	s, e := grants.New(ctx, cfg.gp, cfg.mp, cfg.log.WithName("store"))
	if e != nil {
		return nil, e
	}
	return s, nil
}

// WithGrantPersister sets Persister for subject-permission grants,
// all grants will be lost after restart if not set
func WithGrantPersister(p types.GrantPersister) StoreOption {
	return func(cfg *StoreConfig) {
		cfg.gp = p
	}
}

// WithMembershipPersister sets Persister for user-role assignments,
// all assignments will be lost after restart if not set
func WithMembershipPersister(p types.MembershipPersister) StoreOption {
	return func(cfg *StoreConfig) {
		cfg.mp = p
	}
}

// WithStoreLogger sets logger for the store
func WithStoreLogger(l logr.Logger) StoreOption {
	return func(cfg *StoreConfig) {
		cfg.log = &l
	}
}

// StoreConfig works together with StoreOption to control the initialization of role store
type StoreConfig struct {
	gp  types.GrantPersister
	mp  types.MembershipPersister
	log *logr.Logger
}

// StoreOption controls how to init a role store
type StoreOption func(*StoreConfig)
