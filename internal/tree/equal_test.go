package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualScalars(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal strings", String("yes"), String("yes"), true},
		{"different strings", String("yes"), String("no"), false},
		{"equal bools", Bool(true), Bool(true), true},
		{"different bools", Bool(true), Bool(false), false},
		{"null vs null", Null{}, Null{}, true},
		{"null vs empty string", Null{}, String(""), false},
		{"integer literals", Number("42"), Number("42"), true},
		{"integer vs decimal", Number("1"), Number("1.0"), true},
		{"exponent form", Number("1e2"), Number("100"), true},
		{"negative zero", Number("-0"), Number("0"), true},
		{"different numbers", Number("1.5"), Number("1.50001"), false},
		{"beyond float64 precision", Number("9007199254740993"), Number("9007199254740992"), false},
		{"number vs string", Number("1"), String("1"), false},
		{"bool vs string", Bool(true), String("true"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestEqualObjectsIgnoreMemberOrder(t *testing.T) {
	a := NewObject(M("label", String("Users")), M("description", String("All users")))
	b := NewObject(M("description", String("All users")), M("label", String("Users")))

	assert.True(t, Equal(a, b))
}

func TestEqualObjectsKeySets(t *testing.T) {
	a := NewObject(M("a", Number("1")), M("b", Number("2")))

	assert.False(t, Equal(a, NewObject(M("a", Number("1")))), "missing key")
	assert.False(t, Equal(a, NewObject(M("a", Number("1")), M("c", Number("2")))), "renamed key")
	assert.False(t, Equal(a, NewObject(M("a", Number("1")), M("b", Number("2")), M("c", Null{}))), "extra key")
}

func TestEqualArrays(t *testing.T) {
	a := NewArray(String("raw"), String("time"), String("date"))

	assert.True(t, Equal(a, NewArray(String("raw"), String("time"), String("date"))))
	assert.False(t, Equal(a, NewArray(String("time"), String("raw"), String("date"))), "order matters")
	assert.False(t, Equal(a, NewArray(String("raw"), String("time"))), "length matters")
	assert.False(t, Equal(a, NewObject()), "kind matters")
}

func TestEqualNested(t *testing.T) {
	a := usersView("name", "label", "description", "dimensions")
	b := usersView("dimensions", "label", "description", "name")
	assert.True(t, Equal(a, b))

	c := usersView("name", "label", "description", "dimensions")
	dims, _ := c[0].Value.(Array)[0].(Object).Get("dimensions")
	dims.(Array)[2] = NewObject(M("type", String("time")), M("name", String("updated_at")))
	assert.False(t, Equal(a, c))
}

func TestDiffReportsPaths(t *testing.T) {
	a := NewObject(
		M("views", NewArray(NewObject(
			M("name", String("users")),
			M("sql_table_name", String("public.users")),
			M("dimensions", NewArray(String("id"), String("name"))),
		))),
	)
	b := NewObject(
		M("views", NewArray(NewObject(
			M("name", String("users")),
			M("dimensions", NewArray(String("id"), String("email"), String("name"))),
			M("label", String("Users")),
		))),
	)

	diffs := Diff(a, b, 0)

	require.Len(t, diffs, 4)
	assert.Equal(t, Difference{"views[0].dimensions", "2 elements", "3 elements"}, diffs[0])
	assert.Equal(t, Difference{"views[0].dimensions[1]", `"name"`, `"email"`}, diffs[1])
	assert.Equal(t, Difference{"views[0].label", "<missing>", `"Users"`}, diffs[2])
	assert.Equal(t, Difference{"views[0].sql_table_name", `"public.users"`, "<missing>"}, diffs[3])
}

func TestDiffLimit(t *testing.T) {
	a := NewArray(Number("1"), Number("2"), Number("3"))
	b := NewArray(Number("4"), Number("5"), Number("6"))

	diffs := Diff(a, b, 2)

	require.Len(t, diffs, 2)
	assert.Equal(t, "[0]", diffs[0].Path)
	assert.Equal(t, "[1]", diffs[1].Path)
}

func TestDiffEqualValues(t *testing.T) {
	v := usersView("name", "label", "description", "dimensions")
	assert.Empty(t, Diff(v, Canonicalize(v), 0))
}

func TestDiffQuotesOddKeys(t *testing.T) {
	diffs := Diff(NewObject(M("my key", Number("1"))), NewObject(M("my key", Number("2"))), 0)

	require.Len(t, diffs, 1)
	assert.Equal(t, `["my key"]`, diffs[0].Path)
	assert.Equal(t, `["my key"]: 1 != 2`, diffs[0].String())
}
