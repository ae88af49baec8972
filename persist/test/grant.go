// Package test holds cases every persister implementation should pass
package test

import (
	"context"

	"github.com/supremind/authorizable/types"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// GrantPersisterCases describes the behavior of a fresh, empty grant persister built by newPersister
func GrantPersisterCases(name string, newPersister func() types.GrantPersister) bool {
	return Describe(name, func() {
		insertPolices := []types.GrantPolicy{
			{Subject: types.Role("admin"), Permission: types.UsersView},
			{Subject: types.Role("admin"), Permission: types.UsersCreate},
			{Subject: types.Role("admin"), Permission: types.UsersDelete},
			{Subject: types.Role("user"), Permission: types.UsersView},
			{Subject: types.User("alan"), Permission: types.UsersEdit},
		}
		removePolices := []types.GrantPolicy{
			{Subject: types.Role("admin"), Permission: types.UsersDelete},
			{Subject: types.User("alan"), Permission: types.UsersEdit},
		}

		changes := make([]types.GrantPolicyChange, 0, len(insertPolices)+len(removePolices))
		for _, policy := range insertPolices {
			changes = append(changes, types.GrantPolicyChange{GrantPolicy: policy, Method: types.PersistInsert})
		}
		for _, policy := range removePolices {
			changes = append(changes, types.GrantPolicyChange{GrantPolicy: policy, Method: types.PersistDelete})
		}

		var (
			gp     types.GrantPersister
			ctx    context.Context
			cancel context.CancelFunc
		)

		BeforeEach(func() {
			gp = newPersister()
			ctx, cancel = context.WithCancel(context.Background())
		})

		AfterEach(func() {
			cancel()
		})

		It("inserts and removes a policy only once", func() {
			policy := insertPolices[0]
			Expect(gp.Insert(policy.Subject, policy.Permission)).To(Succeed())
			Expect(gp.Insert(policy.Subject, policy.Permission)).To(MatchError(types.ErrAlreadyExists))

			Expect(gp.Remove(policy.Subject, policy.Permission)).To(Succeed())
			Expect(gp.Remove(policy.Subject, policy.Permission)).To(MatchError(types.ErrNotFound))
		})

		It("sends changes to watchers", func() {
			w, e := gp.Watch(ctx)
			Expect(e).To(Succeed())

			go func() {
				defer GinkgoRecover()

				for _, policy := range insertPolices {
					Expect(gp.Insert(policy.Subject, policy.Permission)).To(Succeed())
				}
				for _, policy := range removePolices {
					Expect(gp.Remove(policy.Subject, policy.Permission)).To(Succeed())
				}
			}()

			for _, change := range changes {
				var got types.GrantPolicyChange
				Eventually(w).Should(Receive(&got))
				Expect(got).To(Equal(change))
			}
			Consistently(w).ShouldNot(Receive())

			Expect(gp.List()).To(ConsistOf(
				types.GrantPolicy{Subject: types.Role("admin"), Permission: types.UsersView},
				types.GrantPolicy{Subject: types.Role("admin"), Permission: types.UsersCreate},
				types.GrantPolicy{Subject: types.Role("user"), Permission: types.UsersView},
			))
		})

		It("closes the change stream with the context", func() {
			w, e := gp.Watch(ctx)
			Expect(e).To(Succeed())
			cancel()
			Eventually(w).Should(BeClosed())
		})
	})
}
