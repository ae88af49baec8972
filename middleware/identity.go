package middleware

import (
	"context"
	"net/http"

	"github.com/supremind/authorizable/types"
)

type subjectKey struct{}

// IdentityProvider tells who is calling, false if the caller is not authenticated
type IdentityProvider interface {
	CurrentSubject(r *http.Request) (types.Subject, bool)
}

// IdentityFunc is an adapter to use ordinary functions as IdentityProvider
type IdentityFunc func(r *http.Request) (types.Subject, bool)

// CurrentSubject implements IdentityProvider
func (f IdentityFunc) CurrentSubject(r *http.Request) (types.Subject, bool) {
	return f(r)
}

// WithSubject returns a copy of ctx carrying sub, authentication middlewares use it to pass the caller on
func WithSubject(ctx context.Context, sub types.Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the subject carried by ctx
func SubjectFromContext(ctx context.Context) (types.Subject, bool) {
	sub, ok := ctx.Value(subjectKey{}).(types.Subject)
	if !ok || types.Anonymous(sub) {
		return nil, false
	}
	return sub, true
}

// ContextIdentity reads the subject stored by WithSubject
var ContextIdentity IdentityProvider = IdentityFunc(func(r *http.Request) (types.Subject, bool) {
	return SubjectFromContext(r.Context())
})
