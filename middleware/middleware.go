// Package middleware authorizes requests routed by gorilla/mux before they reach handler methods.
//
// Routes are named after the handler method they dispatch to, like "UserController.index".
package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/gorilla/mux"
	"github.com/supremind/authorizable/types"
)

// HandlerLookup finds handler declarations by name, *authorizable.Registry implements it
type HandlerLookup interface {
	Lookup(name string) (types.Handler, bool)
}

// EntityBinder returns the domain entity bound to the request route, nil if none
type EntityBinder func(r *http.Request) interface{}

// Response is the body written for rejected requests
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// New creates a middleware authorizing every named route by engine.
// Unnamed routes are passed through, routes naming an unknown handler are answered with 500.
// WithRoutePrefix limits authorization to routes named with the prefix.
func New(engine types.Engine, identity IdentityProvider, lookup HandlerLookup, opts ...Option) mux.MiddlewareFunc {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.log == nil {
		l := stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile))
		cfg.log = &l
	}
	if identity == nil {
		identity = ContextIdentity
	}
	l := cfg.log.WithName("middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := mux.CurrentRoute(r)
			if route == nil || route.GetName() == "" {
				next.ServeHTTP(w, r)
				return
			}

			routeName := route.GetName()
			if cfg.prefix != "" {
				if !strings.HasPrefix(routeName, cfg.prefix) {
					next.ServeHTTP(w, r)
					return
				}
				routeName = strings.TrimPrefix(routeName, cfg.prefix)
			}

			name, method, ok := splitRouteName(routeName)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			h, ok := lookup.Lookup(name)
			if !ok {
				l.Error(types.ErrConfiguration, "route names an unknown handler", "route", route.GetName())
				writeJSON(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			inv := types.Call(method)
			if cfg.binder != nil {
				if entity := cfg.binder(r); entity != nil {
					inv = inv.Bind(entity)
				}
			}

			sub, ok := identity.CurrentSubject(r)
			if !ok {
				sub = nil
			}
			e := engine.Authorize(r.Context(), h, inv, sub)
			if e == nil {
				next.ServeHTTP(w, r)
				return
			}

			status := StatusOf(e)
			message := "Internal server error"
			var ae *types.AuthorizationError
			if errors.As(e, &ae) {
				message = ae.Message
			} else {
				l.Error(e, "authorize failed", "route", route.GetName())
			}
			writeJSON(w, status, message)
		})
	}
}

// StatusOf maps an authorization error to a HTTP status code
func StatusOf(e error) int {
	switch {
	case e == nil:
		return http.StatusOK
	case types.IsAuthenticationRequired(e):
		return http.StatusUnauthorized
	case types.IsForbidden(e):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// splitRouteName splits "UserController.index" at the last dot
func splitRouteName(name string) (string, string, bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func writeJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Message: message})
}

// WithEntityBinder binds entities to invocations, their types decide resource names
func WithEntityBinder(b EntityBinder) Option {
	return func(cfg *Config) {
		cfg.binder = b
	}
}

// WithRoutePrefix authorizes only routes named like "{prefix}UserController.index", others are passed through
func WithRoutePrefix(prefix string) Option {
	return func(cfg *Config) {
		cfg.prefix = prefix
	}
}

// WithLogger sets logger for the middleware
func WithLogger(l logr.Logger) Option {
	return func(cfg *Config) {
		cfg.log = &l
	}
}

// Config works together with Option to control the middleware
type Config struct {
	binder EntityBinder
	prefix string
	log    *logr.Logger
}

// Option controls how the middleware works
type Option func(*Config)
