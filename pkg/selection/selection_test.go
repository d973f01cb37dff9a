package selection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

func TestWithRestoresOnSuccess(t *testing.T) {
	sel := New()
	before := sel.Snapshot()

	err := sel.With(Override{Build: variant.FastDebug}, func() error {
		require.Equal(t, variant.FastDebug, sel.Build)
		require.Equal(t, variant.Server, sel.VM)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, before, sel.Snapshot())
	require.Zero(t, sel.Depth())
}

func TestWithRestoresOnError(t *testing.T) {
	sel := New()
	before := sel.Snapshot()
	boom := errors.New("boom")

	err := sel.With(Override{VM: variant.Client, Build: variant.Debug, Mode: variant.JIT}, func() error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, before, sel.Snapshot())
}

func TestWithRestoresOnPanic(t *testing.T) {
	sel := New()
	before := sel.Snapshot()

	func() {
		defer func() { _ = recover() }()
		_ = sel.With(Override{Build: variant.Optimized}, func() error {
			panic("build exploded")
		})
	}()
	require.Equal(t, before, sel.Snapshot())
	require.Zero(t, sel.Depth())
}

func TestNestedOverrides(t *testing.T) {
	sel := New()

	err := sel.With(Override{Build: variant.FastDebug}, func() error {
		return sel.With(Override{VM: variant.Client, Mode: variant.Disabled}, func() error {
			require.Equal(t, Triple{VM: variant.Client, Build: variant.FastDebug, Mode: variant.Disabled}, sel.Snapshot())
			require.Equal(t, 2, sel.Depth())
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, Triple{VM: variant.Server, Build: variant.Product, Mode: variant.Hosted}, sel.Snapshot())
}

func TestRestoreIsIdempotent(t *testing.T) {
	sel := New()
	restore := sel.Push(Override{Build: variant.Debug})
	restore()
	restore()
	require.Equal(t, variant.Product, sel.Build)
	require.Zero(t, sel.Depth())
}
