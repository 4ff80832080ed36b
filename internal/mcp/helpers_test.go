package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresent(t *testing.T) {
	t.Parallel()

	assert.False(t, present(nil))
	assert.False(t, present(json.RawMessage("null")))
	assert.True(t, present(json.RawMessage("{}")))
	assert.True(t, present(json.RawMessage("[]")))
}

func TestDecodeAST(t *testing.T) {
	t.Parallel()

	ast, err := decodeAST(json.RawMessage(`{"tables":[{"id":"table_1","name":"users","columns":[]}],"relationships":[]}`))
	require.NoError(t, err)
	require.Len(t, ast.Tables, 1)
	assert.Equal(t, "users", ast.Tables[0].Name)

	_, err = decodeAST(json.RawMessage(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ast")
}

func TestDecodeGraph(t *testing.T) {
	t.Parallel()

	nodes, edges, err := decodeGraph(
		json.RawMessage(`[{"id":"table_1","type":"databaseSchema","position":{"x":0,"y":0},"data":{"label":"users","schema":[]}}]`),
		nil,
	)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "users", nodes[0].Data.Label)
	assert.Nil(t, edges)

	_, _, err = decodeGraph(json.RawMessage(`{}`), nil)
	assert.ErrorContains(t, err, "invalid nodes")

	_, _, err = decodeGraph(json.RawMessage(`[]`), json.RawMessage(`"nope"`))
	assert.ErrorContains(t, err, "invalid edges")
}
