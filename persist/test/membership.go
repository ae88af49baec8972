package test

import (
	"context"

	"github.com/supremind/authorizable/types"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// MembershipPersisterCases describes the behavior of a fresh, empty membership persister built by newPersister
func MembershipPersisterCases(name string, newPersister func() types.MembershipPersister) bool {
	return Describe(name, func() {
		insertPolices := []types.MembershipPolicy{
			{User: "alan", Role: "admin"},
			{User: "albert", Role: "admin"},
			{User: "edison", Role: "user"},
			{User: "eve", Role: "user"},
			{User: "issac", Role: "auditor"},
		}
		removePolices := []types.MembershipPolicy{
			{User: "albert", Role: "admin"},
			{User: "eve", Role: "user"},
		}

		changes := make([]types.MembershipPolicyChange, 0, len(insertPolices)+len(removePolices))
		for _, policy := range insertPolices {
			changes = append(changes, types.MembershipPolicyChange{MembershipPolicy: policy, Method: types.PersistInsert})
		}
		for _, policy := range removePolices {
			changes = append(changes, types.MembershipPolicyChange{MembershipPolicy: policy, Method: types.PersistDelete})
		}

		var (
			mp     types.MembershipPersister
			ctx    context.Context
			cancel context.CancelFunc
		)

		BeforeEach(func() {
			mp = newPersister()
			ctx, cancel = context.WithCancel(context.Background())
		})

		AfterEach(func() {
			cancel()
		})

		It("inserts and removes a policy only once", func() {
			policy := insertPolices[0]
			Expect(mp.Insert(policy.User, policy.Role)).To(Succeed())
			Expect(mp.Insert(policy.User, policy.Role)).To(MatchError(types.ErrAlreadyExists))

			Expect(mp.Remove(policy.User, policy.Role)).To(Succeed())
			Expect(mp.Remove(policy.User, policy.Role)).To(MatchError(types.ErrNotFound))
		})

		It("sends changes to watchers", func() {
			w, e := mp.Watch(ctx)
			Expect(e).To(Succeed())

			go func() {
				defer GinkgoRecover()

				for _, policy := range insertPolices {
					Expect(mp.Insert(policy.User, policy.Role)).To(Succeed())
				}
				for _, policy := range removePolices {
					Expect(mp.Remove(policy.User, policy.Role)).To(Succeed())
				}
			}()

			for _, change := range changes {
				var got types.MembershipPolicyChange
				Eventually(w).Should(Receive(&got))
				Expect(got).To(Equal(change))
			}
			Consistently(w).ShouldNot(Receive())

			Expect(mp.List()).To(ConsistOf(
				types.MembershipPolicy{User: "alan", Role: "admin"},
				types.MembershipPolicy{User: "edison", Role: "user"},
				types.MembershipPolicy{User: "issac", Role: "auditor"},
			))
		})

		It("closes the change stream with the context", func() {
			w, e := mp.Watch(ctx)
			Expect(e).To(Succeed())
			cancel()
			Eventually(w).Should(BeClosed())
		})
	})
}
