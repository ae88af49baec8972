package filter

import (
	"context"
	"sync"

	"github.com/supremind/authorizable/types"
)

type membershipPersisterFilter struct {
	types.MembershipPersister
	changes map[types.MembershipPolicyChange]struct{}
	sync.RWMutex
}

// NewMembershipPersister checks if the incoming changes are made by the inner persister itself,
// and does not send them to the watcher again if true
func NewMembershipPersister(p types.MembershipPersister) types.MembershipPersister {
	return &membershipPersisterFilter{
		MembershipPersister: p,
		changes:             make(map[types.MembershipPolicyChange]struct{}),
	}
}

// Insert a membership policy to the persister
func (f *membershipPersisterFilter) Insert(user types.User, role types.Role) error {
	return f.record(types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{User: user, Role: role},
		Method:           types.PersistInsert,
	}, func() error {
		return f.MembershipPersister.Insert(user, role)
	})
}

// Remove a membership policy from the persister
func (f *membershipPersisterFilter) Remove(user types.User, role types.Role) error {
	return f.record(types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{User: user, Role: role},
		Method:           types.PersistDelete,
	}, func() error {
		return f.MembershipPersister.Remove(user, role)
	})
}

func (f *membershipPersisterFilter) record(change types.MembershipPolicyChange, do func() error) error {
	f.Lock()
	f.changes[change] = struct{}{}
	f.Unlock()

	if e := do(); e != nil {
		f.Lock()
		delete(f.changes, change)
		f.Unlock()
		return e
	}
	return nil
}

func (f *membershipPersisterFilter) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	in, e := f.MembershipPersister.Watch(ctx)
	if e != nil {
		return nil, e
	}

	out := make(chan types.MembershipPolicyChange)

	go func() {
		defer close(out)

		for change := range in {
			f.Lock()
			_, ok := f.changes[change]
			delete(f.changes, change)
			f.Unlock()

			if ok {
				continue
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
