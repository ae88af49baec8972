package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
)

func TestExplain(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "authz-explain")
}

const policy = `
roles:
  admin: ["*"]
  user: [users_view]
users:
  alice: [admin]
  bob: [user]
handlers:
  - name: UserController
    public: [login]
  - name: ShopController
`

var _ = Describe("authz-explain", func() {
	var dir, path string

	BeforeEach(func() {
		var e error
		dir, e = os.MkdirTemp("", "authz-explain")
		Expect(e).To(Succeed())

		path = filepath.Join(dir, "policy.yml")
		Expect(os.WriteFile(path, []byte(policy), 0o644)).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	DescribeTable("decisions",
		func(args []string, code int, allowed bool) {
			var stdout, stderr bytes.Buffer
			Expect(run(append([]string{"--policy", path}, args...), &stdout, &stderr)).To(Equal(code))

			var out map[string]interface{}
			Expect(yaml.Unmarshal(stdout.Bytes(), &out)).To(Succeed())
			Expect(out).To(HaveKeyWithValue("allowed", allowed))
			Expect(out).To(HaveKeyWithValue("handler", args[1]))
		},
		Entry("admin stores", []string{"--handler", "UserController", "--method", "store", "--user", "alice"}, exitAllowed, true),
		Entry("user stores", []string{"--handler", "UserController", "--method", "store", "--user", "bob"}, exitDenied, false),
		Entry("anonymous views", []string{"--handler", "UserController", "--method", "index"}, exitDenied, false),
		Entry("anonymous logs in", []string{"--handler", "UserController", "--method", "login"}, exitAllowed, true),
		Entry("unmapped method", []string{"--handler", "UserController", "--method", "ping", "--user", "bob"}, exitAllowed, true),
	)

	It("explains standard permissions of bound entities", func() {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--policy", path, "--handler", "UserController", "--method", "show", "--user", "bob", "--entity", "LineItem"}, &stdout, &stderr)
		Expect(code).To(Equal(exitError))

		var out map[string]interface{}
		Expect(yaml.Unmarshal(stdout.Bytes(), &out)).To(Succeed())
		Expect(out).To(HaveKeyWithValue("standard_permission", "line_items_view"))
	})

	It("rejects undeclared handlers", func() {
		var stdout, stderr bytes.Buffer
		Expect(run([]string{"--policy", path, "--handler", "OrderController", "--method", "index"}, &stdout, &stderr)).To(Equal(exitError))
		Expect(stderr.String()).To(ContainSubstring("OrderController"))
	})

	It("reports bad flags", func() {
		var stdout, stderr bytes.Buffer
		Expect(run([]string{"--fly"}, &stdout, &stderr)).To(Equal(exitError))
		Expect(stderr.String()).To(ContainSubstring("unknown flag: --fly"))
		Expect(stderr.String()).To(ContainSubstring("--policy"))
	})

	DescribeTable("errors",
		func(args []string) {
			var stdout, stderr bytes.Buffer
			Expect(run(args, &stdout, &stderr)).To(Equal(exitError))
			Expect(stderr.Len()).NotTo(BeZero())
		},
		Entry("no handler", []string{"--method", "index"}),
		Entry("missing policy", []string{"--policy", "/nonexistent/policy.yml", "--handler", "UserController", "--method", "index"}),
		Entry("bad flag", []string{"--fly"}),
	)
})
