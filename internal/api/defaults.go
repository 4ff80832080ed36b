package api

import "github.com/mvp-joe/schema-sync/internal/schema"

// DefaultDBML is the starter document offered to new diagrams.
const DefaultDBML = `Table users {
  id int [pk, increment]
  email varchar [unique, not null]
  created_at timestamp
}

Table posts {
  id int [pk, increment]
  user_id int [ref: > users.id]
  title varchar [not null]
  body text
}
`

// DefaultAST is DefaultDBML in parsed form.
func DefaultAST() *schema.SchemaAST {
	return &schema.SchemaAST{
		Tables: []schema.TableNode{
			{
				ID:   "table_1",
				Name: "users",
				Columns: []schema.Column{
					{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
					{Name: "email", Type: "varchar", Unique: true},
					{Name: "created_at", Type: "timestamp", Nullable: true},
				},
			},
			{
				ID:   "table_2",
				Name: "posts",
				Columns: []schema.Column{
					{Name: "id", Type: "int", PrimaryKey: true, AutoIncrement: true},
					{Name: "user_id", Type: "int", Nullable: true,
						ForeignKey: &schema.ForeignKeyReference{Table: "users", Column: "id"}},
					{Name: "title", Type: "varchar"},
					{Name: "body", Type: "text", Nullable: true},
				},
			},
		},
		Relationships: []schema.RelationshipEdge{
			{
				ID:         "rel_1",
				FromTable:  "posts",
				FromColumn: "user_id",
				ToTable:    "users",
				ToColumn:   "id",
				Type:       schema.OneToMany,
			},
		},
	}
}
