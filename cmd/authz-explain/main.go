// authz-explain tells how a policy file authorizes one handler method for one user.
//
// It prints the explanation as YAML, and exits with 0 if the invocation is allowed,
// 1 if it is denied, and 2 if no decision could be made.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-logr/stdr"
	"github.com/spf13/pflag"
	"github.com/supremind/authorizable"
	"github.com/supremind/authorizable/types"
	"gopkg.in/yaml.v3"
)

const (
	exitAllowed = 0
	exitDenied  = 1
	exitError   = 2
)

type report struct {
	types.AuthorizationInfo `yaml:",inline"`

	Allowed bool   `yaml:"allowed"`
	Reason  string `yaml:"reason,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		policyPath string
		handler    string
		method     string
		user       string
		entity     string
		verbosity  int
	)

	flags := pflag.NewFlagSet("authz-explain", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&policyPath, "policy", "policy.yml", "path to the policy file")
	flags.StringVar(&handler, "handler", "", "handler name, like UserController")
	flags.StringVar(&method, "method", "", "handler method, like store")
	flags.StringVar(&user, "user", "", "user to authorize, anonymous if empty")
	flags.StringVar(&entity, "entity", "", "type name of the entity bound to the route")
	flags.IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")

	if e := flags.Parse(args); e != nil {
		if e == pflag.ErrHelp {
			return exitAllowed
		}
		fmt.Fprintln(stderr, e)
		flags.PrintDefaults()
		return exitError
	}
	if handler == "" || method == "" {
		fmt.Fprintln(stderr, "--handler and --method are required")
		flags.PrintDefaults()
		return exitError
	}

	stdr.SetVerbosity(verbosity)
	l := stdr.New(log.New(stderr, "", log.LstdFlags|log.Lshortfile))

	ctx := context.Background()
	store, e := authorizable.NewRoleStore(ctx, authorizable.WithStoreLogger(l))
	if e != nil {
		fmt.Fprintln(stderr, e)
		return exitError
	}
	registry, catalog, e := authorizable.LoadPolicy(policyPath, store, l)
	if e != nil {
		fmt.Fprintln(stderr, e)
		return exitError
	}
	engine, e := authorizable.New(
		authorizable.WithStore(store),
		authorizable.WithCatalog(catalog),
		authorizable.WithoutCache(),
		authorizable.WithLogger(l),
	)
	if e != nil {
		fmt.Fprintln(stderr, e)
		return exitError
	}

	h, ok := registry.Lookup(handler)
	if !ok {
		fmt.Fprintf(stderr, "handler %s is not declared in %s\n", handler, policyPath)
		return exitError
	}

	inv := types.Call(method)
	if entity != "" {
		inv = inv.Bind(entity)
	}
	var sub types.Subject
	if user != "" {
		sub = types.User(user)
	}

	decision := engine.Authorize(ctx, h, inv, sub)
	out := report{
		AuthorizationInfo: engine.Explain(ctx, h, inv, sub),
		Allowed:           decision == nil,
	}
	if decision != nil {
		out.Reason = decision.Error()
	}

	enc := yaml.NewEncoder(stdout)
	if e := enc.Encode(out); e != nil {
		fmt.Fprintln(stderr, e)
		return exitError
	}
	if e := enc.Close(); e != nil {
		fmt.Fprintln(stderr, e)
		return exitError
	}

	switch {
	case decision == nil:
		return exitAllowed
	case types.IsAuthenticationRequired(decision), types.IsForbidden(decision):
		return exitDenied
	}
	return exitError
}
