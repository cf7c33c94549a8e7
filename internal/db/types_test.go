package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  interface{}
		want JSONMap
	}{
		{name: "nil", src: nil, want: nil},
		{name: "bytes", src: []byte(`{"status":502,"message":"upstream down"}`), want: JSONMap{"status": float64(502), "message": "upstream down"}},
		{name: "string", src: `{"message":"x"}`, want: JSONMap{"message": "x"}},
		{name: "json null", src: []byte("null"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m JSONMap
			require.NoError(t, m.Scan(tt.src))
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestJSONMap_ScanRejectsUnknownType(t *testing.T) {
	var m JSONMap
	assert.Error(t, m.Scan(42))
}

func TestJSONMap_Value(t *testing.T) {
	v, err := JSONMap(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = JSONMap{"message": "boom"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"boom"}`, v.(string))
}
