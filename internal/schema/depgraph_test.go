package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depAST(rels ...RelationshipEdge) *SchemaAST {
	cols := []Column{{Name: "id", Type: "int"}, {Name: "ref_id", Type: "int"}}
	return &SchemaAST{
		Tables: []TableNode{
			{ID: "table_1", Name: "comments", Columns: cols},
			{ID: "table_2", Name: "posts", Columns: cols},
			{ID: "table_3", Name: "users", Columns: cols},
		},
		Relationships: rels,
	}
}

func TestDependencyGraph_OrderListsReferencedTablesFirst(t *testing.T) {
	t.Parallel()

	ast := depAST(
		RelationshipEdge{ID: "rel_1", FromTable: "comments", FromColumn: "ref_id", ToTable: "posts", ToColumn: "id"},
		RelationshipEdge{ID: "rel_2", FromTable: "posts", FromColumn: "ref_id", ToTable: "users", ToColumn: "id"},
	)

	d, err := NewDependencyGraph(ast)
	require.NoError(t, err)

	order, cycles, err := d.Order()
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.Equal(t, []string{"users", "posts", "comments"}, order)
}

func TestDependencyGraph_OrderPrefersEarlierReadyTables(t *testing.T) {
	t.Parallel()

	// tags is ready from the start, posts only after users. posts is
	// declared first, so it still comes before tags.
	ast := &SchemaAST{
		Tables: []TableNode{
			{ID: "table_1", Name: "users", Columns: []Column{{Name: "id", Type: "int"}}},
			{ID: "table_2", Name: "posts", Columns: []Column{{Name: "id", Type: "int"}, {Name: "user_id", Type: "int"}}},
			{ID: "table_3", Name: "tags", Columns: []Column{{Name: "id", Type: "int"}}},
		},
		Relationships: []RelationshipEdge{
			{ID: "rel_1", FromTable: "posts", FromColumn: "user_id", ToTable: "users", ToColumn: "id"},
		},
	}

	d, err := NewDependencyGraph(ast)
	require.NoError(t, err)

	order, cycles, err := d.Order()
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.Equal(t, []string{"users", "posts", "tags"}, order)
}

func TestDependencyGraph_OrderWithoutRelationshipsKeepsSchemaOrder(t *testing.T) {
	t.Parallel()

	d, err := NewDependencyGraph(depAST())
	require.NoError(t, err)

	order, cycles, err := d.Order()
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.Equal(t, []string{"comments", "posts", "users"}, order)
}

func TestDependencyGraph_CyclesFallBackToSchemaOrder(t *testing.T) {
	t.Parallel()

	ast := depAST(
		RelationshipEdge{ID: "rel_1", FromTable: "posts", FromColumn: "ref_id", ToTable: "users", ToColumn: "id"},
		RelationshipEdge{ID: "rel_2", FromTable: "users", FromColumn: "ref_id", ToTable: "posts", ToColumn: "id"},
	)

	d, err := NewDependencyGraph(ast)
	require.NoError(t, err)

	order, cycles, err := d.Order()
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "posts", "users"}, order)
	assert.Equal(t, [][]string{{"posts", "users"}}, cycles)
}

func TestDependencyGraph_SelfReferenceIsNotACycle(t *testing.T) {
	t.Parallel()

	ast := depAST(
		RelationshipEdge{ID: "rel_1", FromTable: "users", FromColumn: "ref_id", ToTable: "users", ToColumn: "id"},
	)

	d, err := NewDependencyGraph(ast)
	require.NoError(t, err)

	_, cycles, err := d.Order()
	require.NoError(t, err)
	assert.Empty(t, cycles)
	assert.True(t, d.SelfReferencing("users"))

	refs, err := d.Referencing("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, refs)
}

func TestDependencyGraph_Referencing(t *testing.T) {
	t.Parallel()

	ast := depAST(
		RelationshipEdge{ID: "rel_1", FromTable: "comments", FromColumn: "ref_id", ToTable: "users", ToColumn: "id"},
		RelationshipEdge{ID: "rel_2", FromTable: "posts", FromColumn: "ref_id", ToTable: "users", ToColumn: "id"},
		RelationshipEdge{ID: "rel_3", FromTable: "posts", FromColumn: "id", ToTable: "ghosts", ToColumn: "id"},
	)

	d, err := NewDependencyGraph(ast)
	require.NoError(t, err)

	refs, err := d.Referencing("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "posts"}, refs)

	_, err = d.Referencing("ghosts")
	assert.Error(t, err)
}
