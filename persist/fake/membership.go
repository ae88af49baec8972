package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/supremind/authorizable/types"
)

var _ types.MembershipPersister = (*membershipPersister)(nil)

type membershipPersister struct {
	polices  map[types.User]map[types.Role]struct{}
	watchers watchers[types.MembershipPolicyChange]
	sync.RWMutex
}

// NewMembershipPersister returns a fake membership persister holding initial polices
func NewMembershipPersister(initPolices ...types.MembershipPolicy) *membershipPersister {
	p := &membershipPersister{
		polices: make(map[types.User]map[types.Role]struct{}),
	}
	for _, policy := range initPolices {
		p.add(policy.User, policy.Role)
	}
	return p
}

func (p *membershipPersister) add(user types.User, role types.Role) bool {
	if p.polices[user] == nil {
		p.polices[user] = make(map[types.Role]struct{})
	}
	if _, ok := p.polices[user][role]; ok {
		return false
	}
	p.polices[user][role] = struct{}{}
	return true
}

func (p *membershipPersister) Insert(user types.User, role types.Role) error {
	p.Lock()
	defer p.Unlock()

	if !p.add(user, role) {
		return fmt.Errorf("%w: %s in %s", types.ErrAlreadyExists, user, role)
	}

	p.watchers.send(types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{User: user, Role: role},
		Method:           types.PersistInsert,
	})
	return nil
}

func (p *membershipPersister) Remove(user types.User, role types.Role) error {
	p.Lock()
	defer p.Unlock()

	if _, ok := p.polices[user][role]; !ok {
		return fmt.Errorf("%w: %s in %s", types.ErrNotFound, user, role)
	}
	delete(p.polices[user], role)
	if len(p.polices[user]) == 0 {
		delete(p.polices, user)
	}

	p.watchers.send(types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{User: user, Role: role},
		Method:           types.PersistDelete,
	})
	return nil
}

func (p *membershipPersister) List() ([]types.MembershipPolicy, error) {
	p.RLock()
	defer p.RUnlock()

	polices := make([]types.MembershipPolicy, 0, len(p.polices))
	for user, roles := range p.polices {
		for role := range roles {
			polices = append(polices, types.MembershipPolicy{User: user, Role: role})
		}
	}
	return polices, nil
}

func (p *membershipPersister) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	return p.watchers.add(ctx), nil
}
