package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/supremind/authorizable/internal/cache"
	"github.com/supremind/authorizable/internal/handler"
	"github.com/supremind/authorizable/types"
)

func TestResolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "permission resolver")
}

var ctx = context.Background()

type counter struct {
	counts map[string]int
	sync.Mutex
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) Computed(handler string) {
	c.Lock()
	defer c.Unlock()
	c.counts[handler]++
}

func (c *counter) of(handler string) int {
	c.Lock()
	defer c.Unlock()
	return c.counts[handler]
}

type brokenCache struct{}

func (brokenCache) Load(context.Context, string) (types.Resolution, bool, error) {
	return types.Resolution{}, false, errors.New("connection refused")
}

func (brokenCache) Store(context.Context, string, types.Resolution) error {
	return errors.New("connection refused")
}

func (brokenCache) Purge(context.Context) error {
	return errors.New("connection refused")
}

func mustHandler(d handler.Declaration) *handler.Handler {
	h, e := handler.New(d, types.DefaultCatalog(), logr.Discard())
	Expect(e).To(Succeed())
	return h
}

var _ = Describe("resolver", func() {
	var (
		r     *Resolver
		count *counter
	)

	BeforeEach(func() {
		count = newCounter()
		r = New(cache.NewLRU(64, time.Minute), count, logr.Discard())
	})

	DescribeTable("standard permissions",
		func(d handler.Declaration, inv types.Invocation, perm types.Permission, required bool) {
			p, ok := r.PermissionFor(ctx, mustHandler(d), inv)
			Expect(ok).To(Equal(required))
			Expect(p).To(Equal(perm))
		},
		Entry("index", handler.Declaration{Name: "UserController"}, types.Call("index"), types.UsersView, true),
		Entry("store", handler.Declaration{Name: "UserController"}, types.Call("store"), types.UsersCreate, true),
		Entry("destroy", handler.Declaration{Name: "UserController"}, types.Call("destroy"), types.UsersDelete, true),
		Entry("unmapped", handler.Declaration{Name: "UserController"}, types.Call("statistics"), types.Permission(""), false),
		Entry("extended", handler.Declaration{Name: "UserController", Abilities: map[string]types.Ability{"statistics": types.View}}, types.Call("statistics"), types.UsersView, true),
		Entry("dotted", handler.Declaration{Name: "UserController", Convention: types.Dotted}, types.Call("update"), types.Permission("users.edit"), true),
		Entry("bound entity", handler.Declaration{Name: "ShopController"}, types.Invocation{Method: "show", BoundEntity: "OrderItem"}, types.Permission("order_items_view"), true),
		Entry("override", handler.Declaration{Name: "ShopController", ResourceName: "catalog"}, types.Call("show"), types.Permission("catalog_view"), true),
	)

	It("computes a resolution once while it is cached", func() {
		h := mustHandler(handler.Declaration{Name: "UserController"})
		for i := 0; i < 3; i++ {
			p, ok := r.PermissionFor(ctx, h, types.Call("index"))
			Expect(ok).To(BeTrue())
			Expect(p).To(Equal(types.UsersView))
		}
		Expect(count.of("UserController")).To(Equal(1))

		_, ok := r.PermissionFor(ctx, h, types.Call("statistics"))
		Expect(ok).To(BeFalse())
		_, ok = r.PermissionFor(ctx, h, types.Call("statistics"))
		Expect(ok).To(BeFalse())
		Expect(count.of("UserController")).To(Equal(2))
	})

	It("recomputes after purge", func() {
		h := mustHandler(handler.Declaration{Name: "UserController"})
		r.PermissionFor(ctx, h, types.Call("index"))
		Expect(r.Purge(ctx)).To(Succeed())
		r.PermissionFor(ctx, h, types.Call("index"))
		Expect(count.of("UserController")).To(Equal(2))
	})

	It("does not share entries between differently bound invocations", func() {
		h := mustHandler(handler.Declaration{Name: "ShopController"})
		p, _ := r.PermissionFor(ctx, h, types.Invocation{Method: "show", BoundEntity: "Order"})
		Expect(p).To(Equal(types.Permission("orders_view")))
		p, _ = r.PermissionFor(ctx, h, types.Invocation{Method: "show", BoundEntity: "Invoice"})
		Expect(p).To(Equal(types.Permission("invoices_view")))
	})

	It("does not share entries between handlers of the same name with different abilities", func() {
		a := mustHandler(handler.Declaration{Name: "UserController"})
		b := mustHandler(handler.Declaration{Name: "UserController", Abilities: map[string]types.Ability{"index": types.Export}})
		p, _ := r.PermissionFor(ctx, a, types.Call("index"))
		Expect(p).To(Equal(types.UsersView))
		p, _ = r.PermissionFor(ctx, b, types.Call("index"))
		Expect(p).To(Equal(types.Permission("users_export")))
	})

	It("keys resolutions unambiguously", func() {
		a := mustHandler(handler.Declaration{Name: "A_b"})
		b := mustHandler(handler.Declaration{Name: "A"})
		Expect(a.Fingerprint()).To(Equal(b.Fingerprint()))
		Expect(Key(a, types.Call("c"))).NotTo(Equal(Key(b, types.Call("b_c"))))
		Expect(Key(b, types.Call("index_data"))).To(Equal("permission#A#index_data##" + b.Fingerprint()))
	})

	It("skips the cache for handlers opting out", func() {
		h := mustHandler(handler.Declaration{Name: "UserController", DisableCache: true})
		r.PermissionFor(ctx, h, types.Call("index"))
		r.PermissionFor(ctx, h, types.Call("index"))
		Expect(count.of("UserController")).To(Equal(2))
	})

	It("computes when the cache is broken", func() {
		r := New(brokenCache{}, count, logr.Discard())
		h := mustHandler(handler.Declaration{Name: "UserController"})
		p, ok := r.PermissionFor(ctx, h, types.Call("edit"))
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(types.UsersEdit))
	})

	It("works without a cache", func() {
		r := New(nil, nil, logr.Discard())
		h := mustHandler(handler.Declaration{Name: "UserController"})
		p, ok := r.PermissionFor(ctx, h, types.Call("restore"))
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(types.UsersRestore))
		Expect(r.Purge(ctx)).To(Succeed())
	})

	DescribeTable("explicit permissions",
		func(d handler.Declaration, raw string, perm types.Permission) {
			Expect(r.FormatExplicit(mustHandler(d), types.Call("report"), raw)).To(Equal(perm))
		},
		Entry("bare ability", handler.Declaration{Name: "UserController"}, "edit", types.UsersEdit),
		Entry("flat qualified", handler.Declaration{Name: "UserController"}, "users_view", types.UsersView),
		Entry("dotted qualified", handler.Declaration{Name: "UserController"}, "users.view", types.Permission("users.view")),
		Entry("other resource", handler.Declaration{Name: "UserController"}, "orders_view", types.Permission("orders_view")),
		Entry("bare ability dotted", handler.Declaration{Name: "UserController", Convention: types.Dotted}, "edit", types.Permission("users.edit")),
	)
})
