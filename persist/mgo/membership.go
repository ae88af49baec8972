package mgo

import (
	"context"
	"fmt"
	"strings"

	"github.com/globalsign/mgo"
	"github.com/supremind/authorizable/types"
)

var _ types.MembershipPersister = (*MembershipPersister)(nil)

// MembershipPersister is a MembershipPersister backed by mongodb
type MembershipPersister struct {
	*collection
}

// NewMembership uses the given mongodb collection as backend to persist role assignment polices
func NewMembership(coll *mgo.Collection, opts ...collectionOption) (*MembershipPersister, error) {
	p := &MembershipPersister{newCollection(coll, opts...)}

	ss := p.copySession()
	defer ss.closeSession()

	if e := ss.EnsureIndex(mgo.Index{Key: []string{"role"}}); e != nil {
		return nil, e
	}

	return p, nil
}

type membershipPolicyDO struct {
	ID   string     `bson:"_id"`
	User types.User `bson:"user,omitempty"`
	Role types.Role `bson:"role,omitempty"`
}

func newMembershipPolicyDO(user types.User, role types.Role) *membershipPolicyDO {
	return &membershipPolicyDO{
		ID:   string(user) + idSeparator + string(role),
		User: user,
		Role: role,
	}
}

func parseMembershipPolicyID(id string) (types.MembershipPolicy, error) {
	parts := strings.SplitN(id, idSeparator, 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return types.MembershipPolicy{}, fmt.Errorf("invalid membership policy id: %s", id)
	}
	return types.MembershipPolicy{User: types.User(parts[0]), Role: types.Role(parts[1])}, nil
}

// Insert a membership policy to the persister
func (p *MembershipPersister) Insert(user types.User, role types.Role) error {
	ss := p.copySession()
	defer ss.closeSession()

	policy := newMembershipPolicyDO(user, role)
	p.log.V(4).Info("insert membership policy", "policy", policy.ID)

	return parseMgoError(ss.Insert(policy))
}

// Remove a membership policy from the persister
func (p *MembershipPersister) Remove(user types.User, role types.Role) error {
	ss := p.copySession()
	defer ss.closeSession()

	policy := newMembershipPolicyDO(user, role)
	p.log.V(4).Info("remove membership policy", "policy", policy.ID)

	return parseMgoError(ss.RemoveId(policy.ID))
}

// List all polices from the persister
func (p *MembershipPersister) List() ([]types.MembershipPolicy, error) {
	ss := p.copySession()
	defer ss.closeSession()

	iter := ss.Find(nil).Iter()
	defer iter.Close()

	polices := make([]types.MembershipPolicy, 0)
	var mp membershipPolicyDO
	for iter.Next(&mp) {
		polices = append(polices, types.MembershipPolicy{User: mp.User, Role: mp.Role})
		mp = membershipPolicyDO{}
	}
	if e := iter.Err(); e != nil {
		return nil, e
	}

	p.log.V(4).Info("list membership policies", "count", len(polices))

	return polices, nil
}

// Watch any changes occurred about the polices in the persister
func (p *MembershipPersister) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	changes := make(chan types.MembershipPolicyChange)

	emit := func(method types.PersistMethod, id string) bool {
		policy, e := parseMembershipPolicyID(id)
		if e != nil {
			p.log.Error(e, "parse membership policy id", "id", id)
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case changes <- types.MembershipPolicyChange{MembershipPolicy: policy, Method: method}:
			return true
		}
	}

	if e := p.watch(ctx, emit, func() { close(changes) }); e != nil {
		return nil, e
	}
	return changes, nil
}
