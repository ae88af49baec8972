package types

import "reflect"

// Invocation is the dispatch context of one call to a handler method.
// The dispatch layer builds it explicitly, nothing is discovered from the call stack.
type Invocation struct {
	// Method is the handler method name, like "index" or "store"
	Method string
	// BoundEntity is the type name of the domain entity bound to the route, if any
	BoundEntity string
}

// Call creates an invocation of method without a bound entity
func Call(method string) Invocation {
	return Invocation{Method: method}
}

// Bind returns a copy of inv bound to the type of entity
func (inv Invocation) Bind(entity interface{}) Invocation {
	inv.BoundEntity = EntityTypeName(entity)
	return inv
}

// EntityTypeName returns the short type name of v, following pointers.
// A string is taken as the type name itself.
func EntityTypeName(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
