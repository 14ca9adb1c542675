package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgen/config"
)

func TestForbidden(t *testing.T) {
	for _, pkg := range []string{"os", "os/exec", "net", "net/http", "io/ioutil", "syscall", "unsafe", "reflect", "runtime/debug"} {
		assert.True(t, Forbidden(pkg), pkg)
	}
	for _, pkg := range []string{"fmt", "strings", "osx", "network"} {
		assert.False(t, Forbidden(pkg), pkg)
	}
}

func TestDefaultAllowList(t *testing.T) {
	a := DefaultAllowList()
	require.NoError(t, a.Validate())

	assert.True(t, a.Allows("fmt"))
	assert.True(t, a.AllowsSymbol("fmt", "Println"))
	assert.False(t, a.AllowsSymbol("fmt", "Fprintln"))
	assert.True(t, a.AllowsSymbol("strings", "ToUpper"))
	assert.False(t, a.Allows("os"))
	assert.False(t, a.Allows("net/http"))

	for _, pkg := range a.Packages() {
		assert.False(t, Forbidden(pkg), pkg)
	}
}

func TestAllowList_Validate(t *testing.T) {
	tests := []struct {
		name string
		list AllowList
		want string
	}{
		{"forbidden", AllowList{"os/exec": nil}, "never allowed"},
		{"unknown package", AllowList{"example.com/pkg": nil}, "not a standard library package"},
		{"unknown symbol", AllowList{"strings": {"NoSuchFunc"}}, "strings.NoSuchFunc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.list.Validate()
			require.ErrorIs(t, err, config.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAllowList_Exports(t *testing.T) {
	a := AllowList{"fmt": {"Println"}, "strings": nil, "os": nil}
	exports := a.Exports()

	require.Contains(t, exports, "fmt/fmt")
	assert.Contains(t, exports["fmt/fmt"], "Println")
	assert.NotContains(t, exports["fmt/fmt"], "Sprintf")
	assert.Contains(t, exports["strings/strings"], "ToUpper")
	assert.NotContains(t, exports, "os/os")

	assert.Equal(t, []string{"fmt", "os", "strings"}, a.Packages())
}

func TestParseTier(t *testing.T) {
	for in, want := range map[string]Tier{"": TierRestricted, "restricted": TierRestricted, "Unrestricted": TierUnrestricted} {
		got, err := ParseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTier("root")
	assert.Error(t, err)
	assert.Equal(t, "unrestricted", TierUnrestricted.String())
}
