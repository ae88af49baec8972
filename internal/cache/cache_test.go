package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/supremind/authorizable/types"
)

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "resolution caches")
}

var ctx = context.Background()

var required = types.Resolution{Permission: types.UsersView, Required: true}

func resolutionCacheCases(newCache func() types.ResolutionCache) {
	var c types.ResolutionCache

	BeforeEach(func() {
		c = newCache()
	})

	It("misses unknown keys", func() {
		_, ok, e := c.Load(ctx, "permission#UserController#index")
		Expect(e).To(Succeed())
		Expect(ok).To(BeFalse())
	})

	It("round trips permissions and no permission entries", func() {
		Expect(c.Store(ctx, "index", required)).To(Succeed())
		Expect(c.Store(ctx, "health", types.Resolution{})).To(Succeed())

		r, ok, e := c.Load(ctx, "index")
		Expect(e).To(Succeed())
		Expect(ok).To(BeTrue())
		Expect(r).To(Equal(required))

		r, ok, e = c.Load(ctx, "health")
		Expect(e).To(Succeed())
		Expect(ok).To(BeTrue())
		Expect(r.Required).To(BeFalse())
	})

	It("drops everything on purge", func() {
		Expect(c.Store(ctx, "index", required)).To(Succeed())
		Expect(c.Store(ctx, "show", required)).To(Succeed())
		Expect(c.Purge(ctx)).To(Succeed())

		_, ok, _ := c.Load(ctx, "index")
		Expect(ok).To(BeFalse())
		_, ok, _ = c.Load(ctx, "show")
		Expect(ok).To(BeFalse())
	})
}

var _ = Describe("lru cache", func() {
	resolutionCacheCases(func() types.ResolutionCache { return NewLRU(16, time.Minute) })

	It("evicts the least recently used entry", func() {
		c := NewLRU(2, time.Minute)
		Expect(c.Store(ctx, "a", required)).To(Succeed())
		Expect(c.Store(ctx, "b", required)).To(Succeed())
		_, _, _ = c.Load(ctx, "a")
		Expect(c.Store(ctx, "c", required)).To(Succeed())

		Expect(c.Len()).To(Equal(2))
		_, ok, _ := c.Load(ctx, "b")
		Expect(ok).To(BeFalse())
		_, ok, _ = c.Load(ctx, "a")
		Expect(ok).To(BeTrue())
	})

	It("expires entries", func() {
		c := NewLRU(2, 20*time.Millisecond)
		Expect(c.Store(ctx, "a", required)).To(Succeed())
		Eventually(func() bool {
			_, ok, _ := c.Load(ctx, "a")
			return ok
		}).Should(BeFalse())
	})
})

var _ = Describe("redis cache", func() {
	var (
		mini   *miniredis.Miniredis
		client *redis.Client
	)

	BeforeEach(func() {
		var e error
		mini, e = miniredis.Run()
		Expect(e).To(Succeed())
		client = redis.NewClient(&redis.Options{Addr: mini.Addr()})
	})

	AfterEach(func() {
		Expect(client.Close()).To(Succeed())
		mini.Close()
	})

	resolutionCacheCases(func() types.ResolutionCache { return NewRedis(client, "test:", time.Minute) })

	It("stores under the prefix with a ttl", func() {
		c := NewRedis(client, "test:", time.Minute)
		Expect(c.Store(ctx, "index", required)).To(Succeed())

		Expect(mini.Get("test:index")).To(Equal("+users_view"))
		Expect(mini.TTL("test:index")).To(Equal(time.Minute))

		mini.FastForward(2 * time.Minute)
		_, ok, e := c.Load(ctx, "index")
		Expect(e).To(Succeed())
		Expect(ok).To(BeFalse())
	})

	It("purges only its own keys", func() {
		Expect(mini.Set("other:key", "v")).To(Succeed())
		c := NewRedis(client, "test:", time.Minute)
		for _, key := range []string{"a", "b", "c"} {
			Expect(c.Store(ctx, key, required)).To(Succeed())
		}

		Expect(c.Purge(ctx)).To(Succeed())
		Expect(mini.Keys()).To(Equal([]string{"other:key"}))
	})

	It("treats garbage as a miss", func() {
		Expect(mini.Set("test:index", "garbage")).To(Succeed())
		_, ok, e := NewRedis(client, "test:", time.Minute).Load(ctx, "index")
		Expect(e).To(Succeed())
		Expect(ok).To(BeFalse())
	})

	It("reports backend failures", func() {
		c := NewRedis(client, "test:", time.Minute)
		mini.Close()
		_, _, e := c.Load(ctx, "index")
		Expect(e).To(HaveOccurred())
	})
})
