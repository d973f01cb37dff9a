package variant

import (
	"testing"

	"github.com/stretchr/testify/require"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
)

func TestParseVM(t *testing.T) {
	tests := []struct {
		name  string
		want  VM
		alias bool
	}{
		{"server", Server, false},
		{"client", Client, false},
		{"original", Original, false},
		{"graal", Server, true},
		{"jvmci", Server, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, alias, err := ParseVM(tt.name)
			require.NoError(t, err)
			require.Equal(t, tt.want, vm)
			require.Equal(t, tt.alias, alias)
		})
	}

	_, _, err := ParseVM("zero")
	require.ErrorIs(t, err, jerrors.ErrUnknownVM)
	require.Contains(t, err.Error(), "server, client, original")
}

func TestBuildKinds(t *testing.T) {
	require.Equal(t, Product, DefaultBuildKind())
	require.True(t, IsBuildKind("fastdebug"))
	require.False(t, IsBuildKind("fast"))

	require.True(t, Exists(Server, Debug))
	require.True(t, Exists(Original, Product))
	require.False(t, Exists(Original, FastDebug))

	require.Equal(t, "compiler1", Client.HotSpotName())
	require.Equal(t, "1", Client.BuildSuffix())
	require.Empty(t, Server.BuildSuffix())
	require.False(t, Original.JVMCIEnabled())
}

func TestJVMCIModeArgs(t *testing.T) {
	mode, err := ParseJVMCIMode("jit")
	require.NoError(t, err)
	require.Contains(t, mode.VMArgs(), "-XX:+UseJVMCICompiler")
	require.Contains(t, Hosted.VMArgs(), "-XX:-UseJVMCICompiler")
	require.Equal(t, []string{"-XX:+UnlockExperimentalVMOptions", "-XX:-EnableJVMCI"}, Disabled.VMArgs())

	args := Hosted.VMArgs()
	args[0] = "changed"
	require.Equal(t, "-XX:+UnlockExperimentalVMOptions", Hosted.VMArgs()[0])

	_, err = ParseJVMCIMode("aot")
	require.ErrorIs(t, err, jerrors.ErrUnknownJVMCIMode)
}
