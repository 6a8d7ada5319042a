package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "snowflake", Available: []string{"duckdb", "redshift"}}

	assert.Equal(t,
		`unknown warehouse type "snowflake" (available: duckdb, redshift); check warehouse.type in zillowetl.yaml`,
		err.Error())
}

func TestRegister(t *testing.T) {
	Register(" Fake_Warehouse ", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("FAKE_WAREHOUSE"))
	f, ok := Get("fake_warehouse")
	require.True(t, ok)
	assert.NotNil(t, f)
	assert.Contains(t, ListAdapters(), "fake_warehouse")
	assert.IsNonDecreasing(t, ListAdapters())

	assert.Panics(t, func() {
		Register("fake_warehouse", func(_ *slog.Logger) Adapter { return nil })
	})
	assert.Panics(t, func() { Register("", nil) })
}

func TestNewAdapter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		wantErr error
	}{
		{name: "empty", typ: "", wantErr: ErrNoWarehouseType},
		{name: "blank", typ: "   ", wantErr: ErrNoWarehouseType},
		{name: "unknown", typ: "oracle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(Config{Type: tt.typ}, nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var unknown *UnknownAdapterError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, tt.typ, unknown.Type)
		})
	}
}
