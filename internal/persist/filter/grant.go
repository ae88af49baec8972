// Package filter drops persister change events made by the watcher itself
package filter

import (
	"context"
	"sync"

	"github.com/supremind/authorizable/types"
)

type grantPersisterFilter struct {
	types.GrantPersister
	changes map[types.GrantPolicyChange]struct{}
	sync.RWMutex
}

// NewGrantPersister checks if the incoming changes are made by the inner persister itself,
// and does not send them to the watcher again if true
func NewGrantPersister(p types.GrantPersister) types.GrantPersister {
	return &grantPersisterFilter{
		GrantPersister: p,
		changes:        make(map[types.GrantPolicyChange]struct{}),
	}
}

// Insert a grant policy to the persister
func (f *grantPersisterFilter) Insert(sub types.Subject, perm types.Permission) error {
	return f.record(types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Subject: sub, Permission: perm},
		Method:      types.PersistInsert,
	}, func() error {
		return f.GrantPersister.Insert(sub, perm)
	})
}

// Remove a grant policy from the persister
func (f *grantPersisterFilter) Remove(sub types.Subject, perm types.Permission) error {
	return f.record(types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Subject: sub, Permission: perm},
		Method:      types.PersistDelete,
	}, func() error {
		return f.GrantPersister.Remove(sub, perm)
	})
}

func (f *grantPersisterFilter) record(change types.GrantPolicyChange, do func() error) error {
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

func (f *grantPersisterFilter) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
	in, e := f.GrantPersister.Watch(ctx)
	if e != nil {
		return nil, e
	}

	out := make(chan types.GrantPolicyChange)

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
