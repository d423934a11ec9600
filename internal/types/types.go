// Package types implements the type registry (C1): named sum types and
// their variants, looked up by type name or by variant name.
package types

import "fmt"

// Type is the closed set of types a fluxcore program can denote: Int, Bool,
// a named sum type (User), or a Tuple. Equality on User is nominal; on
// Tuple it is structural.
type Type interface {
	String() string
	// IsObject reports whether values of this type live on the VM heap and
	// flow as references at the byte-code level.
	IsObject() bool
	equalTo(Type) bool
}

// Equal reports whether two types denote the same type under the model's
// equality rule (nominal for User, structural for Tuple).
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.equalTo(b)
}

// Int is the machine integer type.
type Int struct{}

func (Int) String() string      { return "Int" }
func (Int) IsObject() bool       { return false }
func (Int) equalTo(o Type) bool  { _, ok := o.(Int); return ok }

// Bool is the boolean type.
type Bool struct{}

func (Bool) String() string     { return "Bool" }
func (Bool) IsObject() bool      { return false }
func (Bool) equalTo(o Type) bool { _, ok := o.(Bool); return ok }

// Variant is one constructor of a User sum type: a name, a 1-based tag
// (position within the sum), and the types of its fields.
type Variant struct {
	Name   string
	Tag    int // 1-based
	Fields []Type
}

// User is a named sum type. Equality is nominal: two User values are equal
// iff their Name matches, regardless of variant contents. This is what
// permits self-referential variants (type L = Nil | Cons(Int, L)) without
// a cycle in the registry.
type User struct {
	Name     string
	Variants []Variant
}

func (t User) String() string { return t.Name }
func (User) IsObject() bool   { return true }
func (t User) equalTo(o Type) bool {
	u, ok := o.(User)
	return ok && u.Name == t.Name
}

// Tuple is a fixed-arity product type. Equality is structural.
type Tuple struct {
	Elems []Type
}

func (t Tuple) String() string {
	s := "("
	for i, e := range t.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + ")"
}
func (Tuple) IsObject() bool { return true }
func (t Tuple) equalTo(o Type) bool {
	u, ok := o.(Tuple)
	if !ok || len(u.Elems) != len(t.Elems) {
		return false
	}
	for i := range t.Elems {
		if !Equal(t.Elems[i], u.Elems[i]) {
			return false
		}
	}
	return true
}

// MaxVariantFields is the resource limit on a variant's field count (§2.7).
const MaxVariantFields = 7

// MaxTupleArity is the resource limit on a tuple's arity (§2.7).
const MaxTupleArity = 255

// RedefinitionError reports an attempt to define a type name that already
// exists. Types are additive: once defined, a type can never be redefined.
type RedefinitionError struct{ Name string }

func (e *RedefinitionError) Error() string {
	return fmt.Sprintf("type %q is already defined", e.Name)
}

// UnknownFieldTypeError reports a variant field naming a type that the
// registry has never heard of.
type UnknownFieldTypeError struct {
	Variant string
	Field   string
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("variant %q references unknown field type %q", e.Variant, e.Field)
}

// ArityLimitError reports a variant or tuple that exceeds its field/arity
// cap.
type ArityLimitError struct {
	Kind  string // "variant" or "tuple"
	Name  string
	Limit int
	Got   int
}

func (e *ArityLimitError) Error() string {
	return fmt.Sprintf("%s %q has %d fields, exceeding the limit of %d", e.Kind, e.Name, e.Got, e.Limit)
}

// DuplicateVariantError reports two variants of the same name within one
// define_type call, or a variant name already owned by another type.
type DuplicateVariantError struct{ Variant string }

func (e *DuplicateVariantError) Error() string {
	return fmt.Sprintf("variant %q is already defined", e.Variant)
}

// NotFoundError reports a lookup_type or lookup_variant miss.
type NotFoundError struct {
	Kind string // "type" or "variant"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Registry is the type registry (C1). Types are additive only.
type Registry struct {
	byName    map[string]User
	variants  map[string]string // variant name -> owning type name
	order     []string          // definition order, for deterministic iteration
}

// NewRegistry returns an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]User),
		variants: make(map[string]string),
	}
}

// DefineType registers a new User sum type. Each variant's fields must
// already resolve (Int, Bool, a previously-defined User, or Tuple); field
// type names are supplied pre-resolved as Type values by the caller since
// the syntax/checker layer is responsible for resolving textual type
// references (including the self-referential case, which internal/checker
// resolves to a nominal User stub for the type being declared, since the
// type is not in the registry until this call returns).
func (r *Registry) DefineType(name string, variants []Variant) error {
	if _, exists := r.byName[name]; exists {
		return &RedefinitionError{Name: name}
	}
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if seen[v.Name] {
			return &DuplicateVariantError{Variant: v.Name}
		}
		if owner, ok := r.variants[v.Name]; ok && owner != name {
			return &DuplicateVariantError{Variant: v.Name}
		}
		seen[v.Name] = true
		if len(v.Fields) > MaxVariantFields {
			return &ArityLimitError{Kind: "variant", Name: v.Name, Limit: MaxVariantFields, Got: len(v.Fields)}
		}
	}
	r.byName[name] = User{Name: name, Variants: variants}
	for _, v := range variants {
		r.variants[v.Name] = name
	}
	r.order = append(r.order, name)
	return nil
}

// LookupType returns the User type registered under name.
func (r *Registry) LookupType(name string) (User, error) {
	u, ok := r.byName[name]
	if !ok {
		return User{}, &NotFoundError{Kind: "type", Name: name}
	}
	return u, nil
}

// LookupVariant resolves a bare variant name to its owning type, 1-based
// tag, and field types. Variant names are unique across the whole registry;
// on a name collision at definition time DefineType already rejects it, so
// lookup here always has at most one owner.
func (r *Registry) LookupVariant(variant string) (owner User, tag int, fields []Type, err error) {
	ownerName, ok := r.variants[variant]
	if !ok {
		return User{}, 0, nil, &NotFoundError{Kind: "variant", Name: variant}
	}
	owner = r.byName[ownerName]
	for _, v := range owner.Variants {
		if v.Name == variant {
			return owner, v.Tag, v.Fields, nil
		}
	}
	return User{}, 0, nil, &NotFoundError{Kind: "variant", Name: variant}
}

// TypeNames returns the registered type names in definition order.
func (r *Registry) TypeNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Snapshot returns a deep-enough copy of the registry for submission
// rollback (§5): types are additive and variants are immutable once built,
// so a shallow copy of the maps is sufficient — no submission ever mutates
// a Variant or User value in place.
func (r *Registry) Snapshot() *Registry {
	cp := &Registry{
		byName:   make(map[string]User, len(r.byName)),
		variants: make(map[string]string, len(r.variants)),
		order:    append([]string(nil), r.order...),
	}
	for k, v := range r.byName {
		cp.byName[k] = v
	}
	for k, v := range r.variants {
		cp.variants[k] = v
	}
	return cp
}

// Restore replaces the receiver's contents with snapshot's, used on
// submission failure to roll back a type-registry mutation that must not
// stick (§5, §7).
func (r *Registry) Restore(snapshot *Registry) {
	r.byName = snapshot.byName
	r.variants = snapshot.variants
	r.order = snapshot.order
}
