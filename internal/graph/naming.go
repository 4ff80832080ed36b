package graph

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	tableIDPrefix        = "table_"
	relationshipIDPrefix = "rel_"
	tableNamePrefix      = "new_table_"
	columnNamePrefix     = "column_"
)

// NextTableID returns "table_N" with N one past the highest numeric table id.
func NextTableID(nodes []Node) string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return nextID(tableIDPrefix, ids)
}

// NextRelationshipID returns "rel_N" with N one past the highest numeric edge id.
func NextRelationshipID(edges []Edge) string {
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.ID
	}
	return nextID(relationshipIDPrefix, ids)
}

// NextTableName returns "new_table_N" starting at len(nodes)+1 and counting up
// past any name already taken.
func NextTableName(nodes []Node) string {
	taken := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		taken[n.Data.Label] = true
	}
	return nextName(tableNamePrefix, len(nodes)+1, taken)
}

// NextColumnName returns "column_N" starting at len(columns)+1 and counting up
// past any title already taken.
func NextColumnName(columns []ColumnData) string {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[c.Title] = true
	}
	return nextName(columnNamePrefix, len(columns)+1, taken)
}

func nextID(prefix string, ids []string) string {
	highest := 0
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%d", prefix, highest+1)
}

func nextName(prefix string, start int, taken map[string]bool) string {
	counter := start
	name := fmt.Sprintf("%s%d", prefix, counter)
	for taken[name] {
		counter++
		name = fmt.Sprintf("%s%d", prefix, counter)
	}
	return name
}
