package mgo

import (
	"context"
	"fmt"
	"strings"

	"github.com/globalsign/mgo"
	"github.com/supremind/authorizable/types"
)

var _ types.GrantPersister = (*GrantPersister)(nil)

// GrantPersister is a GrantPersister backed by mongodb
type GrantPersister struct {
	*collection
}

// NewGrant uses the given mongodb collection as backend to persist grant polices
func NewGrant(coll *mgo.Collection, opts ...collectionOption) (*GrantPersister, error) {
	p := &GrantPersister{newCollection(coll, opts...)}

	ss := p.copySession()
	defer ss.closeSession()

	if e := ss.EnsureIndex(mgo.Index{Key: []string{"permission"}}); e != nil {
		return nil, e
	}

	return p, nil
}

type grantPolicyDO struct {
	ID         string           `bson:"_id"`
	Subject    subject          `bson:"subject,omitempty"`
	Permission types.Permission `bson:"permission,omitempty"`
}

type subject struct {
	User types.User `bson:"user,omitempty"`
	Role types.Role `bson:"role,omitempty"`
}

func (sub *subject) String() string {
	switch {
	case sub.User != "":
		return sub.User.String()
	case sub.Role != "":
		return sub.Role.String()
	}
	return ""
}

func (sub *subject) set(s types.Subject) {
	switch s := s.(type) {
	case types.User:
		sub.User = s
	case types.Role:
		sub.Role = s
	}
}

func (sub *subject) get() types.Subject {
	switch {
	case sub.User != "":
		return sub.User
	case sub.Role != "":
		return sub.Role
	}
	return nil
}

func newGrantPolicyDO(sub types.Subject, perm types.Permission) *grantPolicyDO {
	p := &grantPolicyDO{Permission: perm}
	p.Subject.set(sub)
	p.ID = p.Subject.String() + idSeparator + string(perm)
	return p
}

func parseGrantPolicyID(id string) (types.GrantPolicy, error) {
	parts := strings.SplitN(id, idSeparator, 2)
	if len(parts) < 2 || parts[1] == "" {
		return types.GrantPolicy{}, fmt.Errorf("invalid grant policy id: %s", id)
	}

	sub, e := types.ParseSubject(parts[0])
	if e != nil {
		return types.GrantPolicy{}, e
	}
	return types.GrantPolicy{Subject: sub, Permission: types.Permission(parts[1])}, nil
}

func (p *grantPolicyDO) asGrantPolicy() types.GrantPolicy {
	return types.GrantPolicy{Subject: p.Subject.get(), Permission: p.Permission}
}

// Insert a grant policy to the persister
func (p *GrantPersister) Insert(sub types.Subject, perm types.Permission) error {
	ss := p.copySession()
	defer ss.closeSession()

	policy := newGrantPolicyDO(sub, perm)
	p.log.V(4).Info("insert grant policy", "policy", policy.ID)

	return parseMgoError(ss.Insert(policy))
}

// Remove a grant policy from the persister
func (p *GrantPersister) Remove(sub types.Subject, perm types.Permission) error {
	ss := p.copySession()
	defer ss.closeSession()

	policy := newGrantPolicyDO(sub, perm)
	p.log.V(4).Info("remove grant policy", "policy", policy.ID)

	return parseMgoError(ss.RemoveId(policy.ID))
}

// List all polices from the persister
func (p *GrantPersister) List() ([]types.GrantPolicy, error) {
	ss := p.copySession()
	defer ss.closeSession()

	iter := ss.Find(nil).Iter()
	defer iter.Close()

	polices := make([]types.GrantPolicy, 0)
	var gp grantPolicyDO
	for iter.Next(&gp) {
		polices = append(polices, gp.asGrantPolicy())
		gp = grantPolicyDO{}
	}
	if e := iter.Err(); e != nil {
		return nil, e
	}

	p.log.V(4).Info("list grant policies", "count", len(polices))

	return polices, nil
}

// Watch any changes occurred about the polices in the persister
func (p *GrantPersister) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
	changes := make(chan types.GrantPolicyChange)

	emit := func(method types.PersistMethod, id string) bool {
		policy, e := parseGrantPolicyID(id)
		if e != nil {
			p.log.Error(e, "parse grant policy id", "id", id)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case changes <- types.GrantPolicyChange{GrantPolicy: policy, Method: method}:
			return true
		}
	}

	if e := p.watch(ctx, emit, func() { close(changes) }); e != nil {
		return nil, e
	}
	return changes, nil
}
