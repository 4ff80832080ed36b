package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestColumn_UnmarshalJSON_NullableDefaultsTrue(t *testing.T) {
	t.Parallel()

	var cols []Column
	err := json.Unmarshal([]byte(`[
		{"name": "id", "type": "int", "primaryKey": true, "nullable": false},
		{"name": "bio", "type": "text"}
	]`), &cols)
	require.NoError(t, err)

	require.Len(t, cols, 2)
	assert.False(t, cols[0].Nullable)
	assert.True(t, cols[0].PrimaryKey)
	assert.True(t, cols[1].Nullable)
}

func TestColumn_UnmarshalYAML_NullableDefaultsTrue(t *testing.T) {
	t.Parallel()

	var ast SchemaAST
	err := yaml.Unmarshal([]byte(`
tables:
  - id: table_1
    name: users
    columns:
      - name: id
        type: int
        nullable: false
      - name: bio
        type: text
relationships: []
`), &ast)
	require.NoError(t, err)

	require.Len(t, ast.Tables, 1)
	require.Len(t, ast.Tables[0].Columns, 2)
	assert.False(t, ast.Tables[0].Columns[0].Nullable)
	assert.True(t, ast.Tables[0].Columns[1].Nullable)
}

func TestSchemaAST_CloneIsDeep(t *testing.T) {
	t.Parallel()

	ast := &SchemaAST{Tables: []TableNode{{
		ID:       "table_1",
		Name:     "posts",
		Position: &Position{X: 10, Y: 20},
		Columns: []Column{
			{Name: "user_id", Type: "int", ForeignKey: &ForeignKeyReference{Table: "users", Column: "id"}},
		},
	}}}

	clone := ast.Clone()
	clone.Tables[0].Name = "articles"
	clone.Tables[0].Position.X = 99
	clone.Tables[0].Columns[0].ForeignKey.Table = "accounts"

	assert.Equal(t, "posts", ast.Tables[0].Name)
	assert.Equal(t, 10.0, ast.Tables[0].Position.X)
	assert.Equal(t, "users", ast.Tables[0].Columns[0].ForeignKey.Table)
	assert.Nil(t, (*SchemaAST)(nil).Clone())
}

func TestSchemaAST_FindTableReturnsFirst(t *testing.T) {
	t.Parallel()

	ast := &SchemaAST{Tables: []TableNode{
		{ID: "table_1", Name: "users"},
		{ID: "table_2", Name: "users"},
	}}

	table, ok := ast.FindTable("users")
	require.True(t, ok)
	assert.Equal(t, "table_1", table.ID)

	_, ok = ast.FindTable("posts")
	assert.False(t, ok)
}
