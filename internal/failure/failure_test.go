package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFatal(t *testing.T) {
	fatal := []Kind{Configuration, Build}
	perFixture := []Kind{Decode, Parse, Timeout, Mismatch, Snapshot, Performance}

	for _, k := range fatal {
		assert.True(t, k.Fatal(), k)
	}
	for _, k := range perFixture {
		assert.False(t, k.Fatal(), k)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "run level",
			err:  New(Configuration, "fixture directory not found: views"),
			want: "CONFIGURATION: fixture directory not found: views",
		},
		{
			name: "with case",
			err:  New(Decode, "stdout is not JSON").WithCase("users.json"),
			want: "DECODE [users.json]: stdout is not JSON",
		},
		{
			name: "with cause and paths",
			err: Wrap(Mismatch, "outputs differ", errors.New("views[0].name")).
				WithCase("users.json").
				WithPaths("out/candidate/users.json", "out/reference/users.json"),
			want: "MISMATCH [users.json]: outputs differ: views[0].name (see out/candidate/users.json, out/reference/users.json)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	base := Newf(Timeout, "candidate exceeded %s", "10s")
	wrapped := fmt.Errorf("fixture users: %w", base)

	assert.Equal(t, Timeout, KindOf(wrapped))
	assert.True(t, Is(wrapped, Timeout))
	assert.False(t, IsFatal(wrapped))

	fe, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, fe)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, IsFatal(errors.New("boom")))
	assert.False(t, IsFatal(nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(Build, "compile failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsFatal(err))
}

func TestWithCaseDoesNotMutate(t *testing.T) {
	base := New(Parse, "unexpected token")
	_ = base.WithCase("a.json")

	assert.Empty(t, base.CaseKey)
}
