package ability

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/supremind/authorizable/types"
)

func TestAbility(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ability map")
}

var _ = Describe("ability map", func() {
	DescribeTable("default mappings",
		func(method string, a types.Ability) {
			got, ok := NewDefault().For(method)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(a))
		},
		Entry("index", "index", types.View),
		Entry("show", "show", types.View),
		Entry("store", "store", types.Create),
		Entry("update", "update", types.Edit),
		Entry("destroy", "destroy", types.Delete),
		Entry("trashed", "trashed", types.Restore),
		Entry("export", "export", types.Export),
		Entry("bulk delete", "bulk_delete", types.Delete),
	)

	It("knows nothing about unmapped methods", func() {
		_, ok := NewDefault().For("statistics")
		Expect(ok).To(BeFalse())
	})

	It("is extended and overridden per instance", func() {
		m := NewDefault()
		m.Set("statistics", types.View)
		m.Set("update", types.Restore)

		a, _ := m.For("statistics")
		Expect(a).To(Equal(types.View))
		a, _ = m.For("update")
		Expect(a).To(Equal(types.Restore))

		other := NewDefault()
		_, ok := other.For("statistics")
		Expect(ok).To(BeFalse())
		a, _ = other.For("update")
		Expect(a).To(Equal(types.Edit))
	})

	It("does not share entries with its source", func() {
		src := map[string]types.Ability{"index": types.View}
		m := New(src)
		src["store"] = types.Create
		Expect(m.Len()).To(Equal(1))

		entries := m.Entries()
		entries["destroy"] = types.Delete
		Expect(m.Len()).To(Equal(1))
	})

	Describe("fingerprint", func() {
		It("is stable for equal content", func() {
			Expect(NewDefault().Fingerprint()).To(Equal(New(Defaults()).Fingerprint()))
		})

		It("changes with content", func() {
			m := NewDefault()
			before := m.Fingerprint()

			m.Set("search", types.View)
			Expect(m.Fingerprint()).NotTo(Equal(before))

			m.Unset("search")
			Expect(m.Fingerprint()).To(Equal(before))
		})
	})
})
