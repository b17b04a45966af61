package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStableHash_KeyOrderInvariant(t *testing.T) {
	a := map[string]any{"alpha": 1, "beta": []any{"x", "y"}, "gamma": map[string]any{"b": 2, "a": 1}}
	b := map[string]any{"gamma": map[string]any{"a": 1, "b": 2}, "beta": []any{"x", "y"}, "alpha": 1}

	ha, err := ComputeStableHash(a)
	require.NoError(t, err)
	hb, err := ComputeStableHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "structurally identical maps must hash identically")
}

func TestComputeStableHash_ArrayOrderSensitive(t *testing.T) {
	ha, err := ComputeStableHash([]any{"x", "y"})
	require.NoError(t, err)
	hb, err := ComputeStableHash([]any{"y", "x"})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb, "array order is semantically meaningful")
}

func TestComputeStableHash_ValueSensitive(t *testing.T) {
	ha, err := ComputeStableHash(map[string]any{"n": 1})
	require.NoError(t, err)
	hb, err := ComputeStableHash(map[string]any{"n": 2})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestComputeStableHash_Idempotent(t *testing.T) {
	v := map[string]any{"plan": []any{map[string]any{"week": 0.0, "minutes": 300.0}}}
	h1, err := ComputeStableHash(v)
	require.NoError(t, err)
	h2, err := ComputeStableHash(v)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "sha256 lowercase hex")
}

func TestComputeStableHash_StructsAndMapsAgree(t *testing.T) {
	type inner struct {
		B int    `json:"b"`
		A string `json:"a"`
	}
	hs, err := ComputeStableHash(inner{B: 2, A: "x"})
	require.NoError(t, err)
	hm, err := ComputeStableHash(map[string]any{"a": "x", "b": 2})
	require.NoError(t, err)
	assert.Equal(t, hs, hm, "struct field order must not leak into the hash")
}

func TestComputeStableHash_Unmarshalable(t *testing.T) {
	_, err := ComputeStableHash(make(chan int))
	assert.Error(t, err)
}
