package permissions

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOctalString(t *testing.T) {
	tests := []struct {
		input   string
		want    os.FileMode
		wantErr bool
	}{
		{"", JDKFilePerms, false},
		{"755", 0o755, false},
		{"0644", 0o644, false},
		{"0o700", 0o700, false},
		{"888", JDKFilePerms, true},
		{"17777", JDKFilePerms, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOctalString(tt.input, JDKFilePerms)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatOctal(t *testing.T) {
	require.Equal(t, "0755", FormatOctal(0o755))
	require.Equal(t, "0644", FormatOctal(os.ModeDir|0o644))
	require.True(t, IsExecutable(0o755))
	require.False(t, IsExecutable(0o644))
}
