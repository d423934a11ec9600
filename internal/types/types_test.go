package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefineAndLookupType(t *testing.T) {
	r := NewRegistry()
	err := r.DefineType("Maybe", []Variant{
		{Name: "Nothing", Tag: 1, Fields: nil},
		{Name: "Just", Tag: 2, Fields: []Type{Int{}}},
	})
	require.NoError(t, err)

	u, err := r.LookupType("Maybe")
	require.NoError(t, err)
	require.Equal(t, "Maybe", u.Name)
	require.Len(t, u.Variants, 2)

	owner, tag, fields, err := r.LookupVariant("Just")
	require.NoError(t, err)
	require.Equal(t, "Maybe", owner.Name)
	require.Equal(t, 2, tag)
	require.Equal(t, []Type{Int{}}, fields)
}

func TestRedefinitionRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.DefineType("T", []Variant{{Name: "A", Tag: 1}}))
	err := r.DefineType("T", []Variant{{Name: "B", Tag: 1}})
	require.Error(t, err)
	require.IsType(t, &RedefinitionError{}, err)
}

func TestDuplicateVariantAcrossTypesRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.DefineType("T1", []Variant{{Name: "A", Tag: 1}}))
	err := r.DefineType("T2", []Variant{{Name: "A", Tag: 1}})
	require.Error(t, err)
}

func TestVariantArityLimit(t *testing.T) {
	r := NewRegistry()
	fields := make([]Type, MaxVariantFields+1)
	for i := range fields {
		fields[i] = Int{}
	}
	err := r.DefineType("Big", []Variant{{Name: "Huge", Tag: 1, Fields: fields}})
	require.Error(t, err)
	require.IsType(t, &ArityLimitError{}, err)
}

func TestSelfReferentialUserEqualityIsNominal(t *testing.T) {
	// type L = Nil | Cons(Int, L) -- equality never deep-walks the variant.
	l := User{Name: "L", Variants: []Variant{
		{Name: "Nil", Tag: 1},
		{Name: "Cons", Tag: 2, Fields: []Type{Int{}, User{Name: "L"}}},
	}}
	require.True(t, Equal(l, User{Name: "L"}))
}

func TestTupleEqualityIsStructural(t *testing.T) {
	a := Tuple{Elems: []Type{Int{}, Bool{}}}
	b := Tuple{Elems: []Type{Int{}, Bool{}}}
	c := Tuple{Elems: []Type{Bool{}, Int{}}}
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
}

func TestLookupMissingTypeAndVariant(t *testing.T) {
	r := NewRegistry()
	_, err := r.LookupType("Nope")
	require.Error(t, err)
	_, _, _, err = r.LookupVariant("Nope")
	require.Error(t, err)
}

func TestSnapshotRestoreRollsBackTypeDefinitions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.DefineType("T1", []Variant{{Name: "A", Tag: 1}}))
	snap := r.Snapshot()
	require.NoError(t, r.DefineType("T2", []Variant{{Name: "B", Tag: 1}}))
	r.Restore(snap)
	_, err := r.LookupType("T2")
	require.Error(t, err)
	_, err = r.LookupType("T1")
	require.NoError(t, err)
}
