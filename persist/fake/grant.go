// Package fake provides in-memory persisters which should not be used in real works
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/supremind/authorizable/types"
)

var _ types.GrantPersister = (*grantPersister)(nil)

type grantPersister struct {
	polices  map[types.Subject]map[types.Permission]struct{}
	watchers watchers[types.GrantPolicyChange]
	sync.RWMutex
}

// NewGrantPersister returns a fake grant persister holding initial polices
func NewGrantPersister(initPolices ...types.GrantPolicy) *grantPersister {
	p := &grantPersister{
		polices: make(map[types.Subject]map[types.Permission]struct{}),
	}
	for _, policy := range initPolices {
		p.add(policy.Subject, policy.Permission)
	}
	return p
}

func (p *grantPersister) add(sub types.Subject, perm types.Permission) bool {
	if p.polices[sub] == nil {
		p.polices[sub] = make(map[types.Permission]struct{})
	}
	if _, ok := p.polices[sub][perm]; ok {
		return false
	}
	p.polices[sub][perm] = struct{}{}
	return true
}

func (p *grantPersister) Insert(sub types.Subject, perm types.Permission) error {
	p.Lock()
	defer p.Unlock()

	if !p.add(sub, perm) {
		return fmt.Errorf("%w: grant %s to %s", types.ErrAlreadyExists, perm, sub)
	}

	p.watchers.send(types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Subject: sub, Permission: perm},
		Method:      types.PersistInsert,
	})
	return nil
}

func (p *grantPersister) Remove(sub types.Subject, perm types.Permission) error {
	p.Lock()
	defer p.Unlock()

	if _, ok := p.polices[sub][perm]; !ok {
		return fmt.Errorf("%w: grant %s to %s", types.ErrNotFound, perm, sub)
	}
	delete(p.polices[sub], perm)
	if len(p.polices[sub]) == 0 {
		delete(p.polices, sub)
	}

	p.watchers.send(types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Subject: sub, Permission: perm},
		Method:      types.PersistDelete,
	})
	return nil
}

func (p *grantPersister) List() ([]types.GrantPolicy, error) {
	p.RLock()
	defer p.RUnlock()

	polices := make([]types.GrantPolicy, 0, len(p.polices))
	for sub, perms := range p.polices {
		for perm := range perms {
			polices = append(polices, types.GrantPolicy{Subject: sub, Permission: perm})
		}
	}
	return polices, nil
}

func (p *grantPersister) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
	return p.watchers.add(ctx), nil
}
