package authorizable

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/supremind/authorizable/persist/fake"
	"github.com/supremind/authorizable/types"
)

type UserController struct{}

type LineItem struct{}

var ctx = context.Background()

// seeded the way the user management service seeds its roles
func seededStore() types.RoleStore {
	s, e := NewRoleStore(ctx, WithStoreLogger(logr.Discard()))
	Expect(e).To(Succeed())

	Expect(s.GivePermission(types.Role("admin"), types.DefaultCatalog().Permissions()...)).To(Succeed())
	Expect(s.GivePermission(types.Role("user"), types.UsersView)).To(Succeed())
	Expect(s.AssignRole("alan", "admin")).To(Succeed())
	Expect(s.AssignRole("neumann", "user")).To(Succeed())
	return s
}

func userController(opts ...HandlerOption) types.Handler {
	opts = append([]HandlerOption{
		WithHandlerLogger(logr.Discard()),
		WithAbilities(map[string]string{
			"statistics":              "view",
			"search":                  "view",
			"recent":                  "view",
			"toggleEmailVerification": "edit",
			"bulkDelete":              "delete",
		}),
	}, opts...)
	return MustHandler(&UserController{}, opts...)
}

var _ = Describe("authorizable", func() {
	var (
		store types.RoleStore
		authz types.Engine
	)

	BeforeEach(func() {
		store = seededStore()
		var e error
		authz, e = New(WithStore(store), WithLogger(logr.Discard()), WithRegisterer(prometheus.NewRegistry()))
		Expect(e).To(Succeed())
	})

	It("requires a store", func() {
		_, e := New(WithLogger(logr.Discard()))
		Expect(e).To(MatchError(types.ErrConfiguration))
	})

	DescribeTable("user controller",
		func(user types.User, method string, allowed bool, message string) {
			e := authz.Authorize(ctx, userController(), types.Call(method), user)
			if allowed {
				Expect(e).To(Succeed())
				return
			}
			Expect(e).To(HaveOccurred())
			Expect(e.Error()).To(Equal(message))
		},
		Entry("admin lists", types.User("alan"), "index", true, ""),
		Entry("admin deletes", types.User("alan"), "bulkDelete", true, ""),
		Entry("user lists", types.User("neumann"), "index", true, ""),
		Entry("user searches", types.User("neumann"), "search", true, ""),
		Entry("user creates", types.User("neumann"), "store", false, "Permission required: users_create"),
		Entry("user verifies email", types.User("neumann"), "toggleEmailVerification", false, "Permission required: users_edit"),
		Entry("stranger lists", types.User("stranger"), "index", false, "Permission required: users_view"),
		Entry("anonymous lists", types.User(""), "index", false, "Authentication required"),
		Entry("anonymous calls unmapped", types.User(""), "profile", true, ""),
	)

	It("names handlers after their types", func() {
		Expect(userController().Name()).To(Equal("UserController"))
		h, e := NewHandler("OrderController", WithHandlerLogger(logr.Discard()))
		Expect(e).To(Succeed())
		Expect(h.ResourceName(types.Call("index"))).To(Equal("orders"))
	})

	It("binds entities", func() {
		h := MustHandler("ShopController", WithHandlerLogger(logr.Discard()))
		p, ok := authz.PermissionFor(ctx, h, types.Call("show").Bind(&LineItem{}))
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(types.Permission("line_items_view")))
	})

	It("rejects unknown ability names", func() {
		_, e := NewHandler(&UserController{}, WithHandlerLogger(logr.Discard()), WithAbilities(map[string]string{"approve": "approve"}))
		Expect(e).To(MatchError(types.ErrUnknownAbility))
	})

	It("rejects conflicting rules", func() {
		_, e := NewHandler(&UserController{}, WithHandlerLogger(logr.Discard()),
			WithPublic("update"),
			WithAnyOf("update", "edit"),
		)
		Expect(e).To(MatchError(types.ErrConflictingRules))
	})

	It("checks explicit permissions against the engine catalog", func() {
		catalog := types.MustCatalog("users_view", "orders_view")
		a, e := New(WithStore(store), WithCatalog(catalog), WithLogger(logr.Discard()))
		Expect(e).To(Succeed())
		Expect(store.GivePermission(types.User("neumann"), "orders_view")).To(Succeed())

		h, e := NewHandler("ReportController", WithHandlerLogger(logr.Discard()), ForEngine(a), WithAnyOf("report", "orders_view"))
		Expect(e).To(Succeed())
		Expect(a.Authorize(ctx, h, types.Call("report"), types.User("neumann"))).To(Succeed())

		_, e = NewHandler("ReportController", WithHandlerLogger(logr.Discard()), ForEngine(authz), WithAnyOf("report", "orders_view"))
		Expect(e).To(MatchError(types.ErrUnknownPermission))

		unchecked, e := NewHandler("ReportController", WithHandlerLogger(logr.Discard()), WithAnyOf("report", "orders_view"))
		Expect(e).To(Succeed())
		Expect(authz.Authorize(ctx, unchecked, types.Call("report"), types.User("neumann"))).To(MatchError(types.ErrUnknownPermission))
	})

	It("allows own profile updates by a custom hook", func() {
		own := func(_ context.Context, _ types.Invocation, sub types.Subject) error {
			if sub != types.User("neumann") {
				return types.Deny("You can only update your own profile")
			}
			return nil
		}
		h := userController(WithCustom("updateProfile", own))

		Expect(authz.Authorize(ctx, h, types.Call("updateProfile"), types.User("neumann"))).To(Succeed())
		Expect(authz.Authorize(ctx, h, types.Call("updateProfile"), types.User("alan"))).To(MatchError(types.ErrCustomAuthorization))
	})

	It("requires roles by a custom hook", func() {
		h := userController(WithCustom("audit", RequireRole(store, "admin", "auditor")))

		Expect(authz.Authorize(ctx, h, types.Call("audit"), types.User("alan"))).To(Succeed())
		e := authz.Authorize(ctx, h, types.Call("audit"), types.User("neumann"))
		Expect(e).To(MatchError(types.ErrCustomAuthorization))
		Expect(e.Error()).To(Equal("Role required: admin, auditor"))
		Expect(authz.Authorize(ctx, h, types.Call("audit"), nil)).To(MatchError(types.ErrAuthenticationRequired))
	})

	It("explains decisions", func() {
		h := userController(WithAnyOf("export", "view", "users_edit"))
		info := authz.Explain(ctx, h, types.Call("export"), types.User("neumann"))
		Expect(info.Rule).To(Equal("any_of"))
		Expect(info.AnyOf).To(Equal([]types.Permission{types.UsersView, types.UsersEdit}))
		Expect(info.Subject).To(Equal("user:neumann"))
	})

	Describe("presets", func() {
		It("lets super users do anything", func() {
			a, e := New(WithStore(store), WithLogger(logr.Discard()), WithPresets(SuperUser(types.Role("root"))))
			Expect(e).To(Succeed())
			Expect(store.AssignRole("karman", "root")).To(Succeed())

			Expect(a.Authorize(ctx, userController(), types.Call("destroy"), types.User("karman"))).To(Succeed())
			Expect(a.Authorize(ctx, userController(), types.Call("destroy"), types.User("neumann"))).NotTo(Succeed())
		})

		It("shares permissions with every authenticated subject", func() {
			a, e := New(WithStore(store), WithLogger(logr.Discard()), WithPresets(PublicShared(types.UsersView)))
			Expect(e).To(Succeed())

			Expect(a.Authorize(ctx, userController(), types.Call("index"), types.User("stranger"))).To(Succeed())
			Expect(a.Authorize(ctx, userController(), types.Call("index"), nil)).To(MatchError(types.ErrAuthenticationRequired))
		})
	})

	Describe("caches", func() {
		It("works with redis", func() {
			mini, e := miniredis.Run()
			Expect(e).To(Succeed())
			defer mini.Close()
			client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
			defer client.Close()

			a, e := New(WithStore(store), WithLogger(logr.Discard()), WithRedisCache(client, "authz:", time.Minute))
			Expect(e).To(Succeed())
			Expect(a.Authorize(ctx, userController(), types.Call("index"), types.User("neumann"))).To(Succeed())
			Expect(mini.Keys()).To(HaveLen(1))

			Expect(a.Purge(ctx)).To(Succeed())
			Expect(mini.Keys()).To(BeEmpty())
		})

		It("works without any", func() {
			a, e := New(WithStore(store), WithLogger(logr.Discard()), WithoutCache())
			Expect(e).To(Succeed())
			Expect(a.Authorize(ctx, userController(), types.Call("index"), types.User("neumann"))).To(Succeed())
		})

		It("is skipped by handlers opting out", func() {
			mini, e := miniredis.Run()
			Expect(e).To(Succeed())
			defer mini.Close()
			client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
			defer client.Close()

			a, e := New(WithStore(store), WithLogger(logr.Discard()), WithRedisCache(client, "authz:", time.Minute))
			Expect(e).To(Succeed())
			h := userController(WithoutHandlerCache())
			Expect(h.Cached()).To(BeFalse())
			Expect(a.Authorize(ctx, h, types.Call("index"), types.User("neumann"))).To(Succeed())
			Expect(mini.Keys()).To(BeEmpty())
		})
	})

	Describe("role store", func() {
		It("persists policies", func() {
			c, cancel := context.WithCancel(ctx)
			defer cancel()

			gp := fake.NewGrantPersister()
			mp := fake.NewMembershipPersister()
			s, e := NewRoleStore(c, WithGrantPersister(gp), WithMembershipPersister(mp), WithStoreLogger(logr.Discard()))
			Expect(e).To(Succeed())

			Expect(s.GivePermission(types.Role("user"), types.UsersView, types.UsersEdit)).To(Succeed())
			Expect(s.AssignRole("alan", "user")).To(Succeed())
			Expect(s.PermissionsOf(types.User("alan"))).To(holdExactly(types.UsersView, types.UsersEdit))

			reloaded, e := NewRoleStore(c, WithGrantPersister(gp), WithMembershipPersister(mp), WithStoreLogger(logr.Discard()))
			Expect(e).To(Succeed())
			Expect(reloaded.PermissionsOf(types.User("alan"))).To(holdPermissions(types.UsersView, types.UsersEdit))
		})
	})

	Describe("registry", func() {
		It("looks handlers up by name", func() {
			r, e := NewRegistry(userController())
			Expect(e).To(Succeed())

			h, ok := r.Lookup("UserController")
			Expect(ok).To(BeTrue())
			Expect(h.Name()).To(Equal("UserController"))

			Expect(r.Register(userController())).To(MatchError(types.ErrAlreadyExists))

			r.Replace(MustHandler("OrderController", WithHandlerLogger(logr.Discard())))
			Expect(r.Names()).To(Equal([]string{"OrderController"}))
		})
	})
})
