package jsonrepair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair_IdempotentOnValidJSON(t *testing.T) {
	valid := `{"points":[{"description":"x","score":1}]}`
	var before, after map[string]any
	require.NoError(t, json.Unmarshal([]byte(valid), &before))
	require.NoError(t, json.Unmarshal([]byte(Repair(valid)), &after))
	assert.Equal(t, before, after)
}

func TestRepair_ClosesUnbalancedBraces(t *testing.T) {
	truncated := `{"points":[{"description":"x","score":1}`
	repaired := Repair(truncated)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
}

func TestRepair_StripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"points\":[]}\n```"
	repaired := Repair(fenced)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
}
