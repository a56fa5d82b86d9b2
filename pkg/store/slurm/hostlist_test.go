package slurm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHostlist(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"node[001-003,007],gpu01", []string{"node001", "node002", "node003", "node007", "gpu01"}},
		{"cpu1", []string{"cpu1"}},
		{"cpu[8-11]", []string{"cpu8", "cpu9", "cpu10", "cpu11"}},
		{"rack[1-2]-n[01-02]", []string{"rack1-n01", "rack1-n02", "rack2-n01", "rack2-n02"}},
		{"gpu[001-002],gpu002", []string{"gpu001", "gpu002"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ExpandHostlist(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandHostlist_Invalid(t *testing.T) {
	for _, expr := range []string{"node[001-003", "node]1", "node[a-b]", "node[5-2]"} {
		_, err := ExpandHostlist(expr)
		assert.Error(t, err, expr)
	}
}
