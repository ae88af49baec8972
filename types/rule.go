package types

import (
	"context"
	"fmt"
)

// RuleKind is the kind of authorization rule applied to a handler method.
// Kinds are ordered by precedence, a greater kind wins.
type RuleKind int

// rule kinds, from the lowest precedence to the highest
const (
	RuleStandard RuleKind = iota
	RuleAllOf
	RuleAnyOf
	RuleCustom
	RulePublic
)

func (k RuleKind) String() string {
	switch k {
	case RuleStandard:
		return "standard"
	case RuleAllOf:
		return "all_of"
	case RuleAnyOf:
		return "any_of"
	case RuleCustom:
		return "custom"
	case RulePublic:
		return "public"
	}
	return "unknown"
}

// CustomAuthorizer decides by itself whether sub may perform inv.
// A non nil error is returned to the caller unchanged.
type CustomAuthorizer func(ctx context.Context, inv Invocation, sub Subject) error

// Convention is how an ability and a resource name are composed into a permission
type Convention int

// naming conventions
const (
	// Flat composes "{resource}_{ability}", like "users_view"
	Flat Convention = iota
	// Dotted composes "{resource}.{ability}", like "users.view"
	Dotted
)

// permission separators
const (
	FlatSeparator   = "_"
	DottedSeparator = "."
)

// ParseConvention parses "flat" or "dotted", an empty string means Flat
func ParseConvention(s string) (Convention, error) {
	switch s {
	case "", "flat":
		return Flat, nil
	case "dotted":
		return Dotted, nil
	}
	return Flat, fmt.Errorf("%w: unknown naming convention %q", ErrConfiguration, s)
}

// Separator returns the separator between resource and ability
func (c Convention) Separator() string {
	if c == Dotted {
		return DottedSeparator
	}
	return FlatSeparator
}

// Compose builds the permission for ability on resource
func (c Convention) Compose(resource, ability string) Permission {
	return Permission(resource + c.Separator() + ability)
}

func (c Convention) String() string {
	if c == Dotted {
		return "dotted"
	}
	return "flat"
}
