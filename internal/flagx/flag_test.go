package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-c", "-config"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate value travels with the flag",
			args: []string{"-a", ":8080", "-c", "arcana.json"},
			want: []string{"-c", "arcana.json"},
		},
		{
			name: "equals form kept whole",
			args: []string{"-config=arcana.json", "-d", "arcana.db"},
			want: []string{"-config=arcana.json"},
		},
		{
			name: "unknown flags and positionals dropped",
			args: []string{"-i", "5m", "serve", "-verbose"},
			want: []string{},
		},
		{
			name: "trailing flag without value kept bare",
			args: []string{"-c"},
			want: []string{"-c"},
		},
		{
			name: "dash-prefixed token is not consumed as a value",
			args: []string{"-c", "-config=other.json"},
			want: []string{"-c", "-config=other.json"},
		},
		{
			name: "repeats preserved in order",
			args: []string{"-c", "one.json", "-c", "two.json"},
			want: []string{"-c", "one.json", "-c", "two.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short form", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/etc/arcana/short.json"}
		assert.Equal(t, "/etc/arcana/short.json", JsonConfigFlags())
	})

	t.Run("long form", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/etc/arcana/long.json"}
		assert.Equal(t, "/etc/arcana/long.json", JsonConfigFlags())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"testbin", "-d", "arcana.db"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("last occurrence wins", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/a.json", "-config", "/b.json"}
		assert.Equal(t, "/b.json", JsonConfigFlags())
	})
}
