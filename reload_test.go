package authorizable

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/supremind/authorizable/types"
)

const initialPolicy = `
roles:
  admin: ["*"]
  user: [users_view]
users:
  alan: [admin]
  neumann: [user]
handlers:
  - name: UserController
`

const reportsPolicy = `
permissions: [users_view, users_create, users_edit, users_delete, users_restore, reports_view]
handlers:
  - name: UserController
  - name: ReportController
`

const publicPolicy = `
handlers:
  - name: UserController
    public: [index]
`

var _ = Describe("policy files", func() {
	var (
		dir  string
		path string
	)

	BeforeEach(func() {
		var e error
		dir, e = os.MkdirTemp("", "authorizable")
		Expect(e).To(Succeed())
		path = filepath.Join(dir, "policy.yaml")
		Expect(os.WriteFile(path, []byte(initialPolicy), 0o644)).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("loads handlers and seeds the store", func() {
		store, e := NewRoleStore(ctx, WithStoreLogger(logr.Discard()))
		Expect(e).To(Succeed())

		registry, catalog, e := LoadPolicy(path, store, logr.Discard())
		Expect(e).To(Succeed())
		Expect(catalog.Len()).To(Equal(5))
		Expect(registry.Names()).To(Equal([]string{"UserController"}))

		authz, e := New(WithStore(store), WithCatalog(catalog), WithLogger(logr.Discard()))
		Expect(e).To(Succeed())

		h, ok := registry.Lookup("UserController")
		Expect(ok).To(BeTrue())
		Expect(authz.Authorize(ctx, h, types.Call("destroy"), types.User("alan"))).To(Succeed())
		Expect(authz.Authorize(ctx, h, types.Call("index"), types.User("neumann"))).To(Succeed())
		Expect(types.IsForbidden(authz.Authorize(ctx, h, types.Call("destroy"), types.User("neumann")))).To(BeTrue())
	})

	It("replaces handlers on change", func() {
		store, e := NewRoleStore(ctx, WithStoreLogger(logr.Discard()))
		Expect(e).To(Succeed())
		registry, catalog, e := LoadPolicy(path, store, logr.Discard())
		Expect(e).To(Succeed())
		authz, e := New(WithStore(store), WithCatalog(catalog), WithLogger(logr.Discard()))
		Expect(e).To(Succeed())

		c, cancel := context.WithCancel(ctx)
		defer cancel()
		Expect(ReloadOnChange(c, path, registry, authz, logr.Discard())).To(Succeed())

		Expect(os.WriteFile(path, []byte(publicPolicy), 0o644)).To(Succeed())
		Eventually(func() types.RuleKind {
			h, ok := registry.Lookup("UserController")
			if !ok {
				return types.RuleStandard
			}
			return h.Rule("index")
		}, 5*time.Second).Should(Equal(types.RulePublic))
	})

	It("follows permissions added on change", func() {
		store, e := NewRoleStore(ctx, WithStoreLogger(logr.Discard()))
		Expect(e).To(Succeed())
		registry, catalog, e := LoadPolicy(path, store, logr.Discard())
		Expect(e).To(Succeed())
		authz, e := New(WithStore(store), WithCatalog(catalog), WithLogger(logr.Discard()))
		Expect(e).To(Succeed())
		Expect(store.GivePermission(types.User("alan"), "reports_view")).To(Succeed())

		c, cancel := context.WithCancel(ctx)
		defer cancel()
		Expect(ReloadOnChange(c, path, registry, authz, logr.Discard())).To(Succeed())

		Expect(os.WriteFile(path, []byte(reportsPolicy), 0o644)).To(Succeed())
		Eventually(func() error {
			h, ok := registry.Lookup("ReportController")
			if !ok {
				return types.ErrNotFound
			}
			return authz.Authorize(ctx, h, types.Call("index"), types.User("alan"))
		}, 5*time.Second).Should(Succeed())
		Expect(authz.Catalog().Has("reports_view")).To(BeTrue())
	})
})
