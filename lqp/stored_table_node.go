package lqp

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// StoredTableNode is the leaf over a stored table. Column pruning may
// restrict the exposed columns; pruned references keep the table-level
// column ids so lineage stays stable.
type StoredTableNode struct {
	baseNode

	TableName string
	Table     *storage.Table

	prunedColumns map[schema.ColumnID]struct{}
}

func NewStoredTableNode(name string, table *storage.Table) *StoredTableNode {
	n := &StoredTableNode{TableName: name, Table: table}
	n.init(n, TypeStoredTable, nil)
	return n
}

// SetPrunedColumnIDs hides the listed table columns from the output.
func (n *StoredTableNode) SetPrunedColumnIDs(columns []schema.ColumnID) {
	n.prunedColumns = map[schema.ColumnID]struct{}{}
	for _, c := range columns {
		n.prunedColumns[c] = struct{}{}
	}
}

func (n *StoredTableNode) PrunedColumnIDs() []schema.ColumnID {
	out := make([]schema.ColumnID, 0, len(n.prunedColumns))
	for c := range n.prunedColumns {
		out = append(out, c)
	}
	return out
}

func (n *StoredTableNode) isPruned(c schema.ColumnID) bool {
	_, ok := n.prunedColumns[c]
	return ok
}

// GetColumn resolves a column by table column name.
func (n *StoredTableNode) GetColumn(name string) expression.LQPColumnReference {
	id := n.Table.ColumnIDByName(name)
	return expression.NewColumnReference(n, id)
}

func (n *StoredTableNode) ColumnExpressionFor(id schema.ColumnID) *expression.LQPColumnExpression {
	return expression.NewLQPColumn(
		expression.NewColumnReference(n, id),
		n.Table.ColumnType(id),
		n.Table.ColumnNullable(id),
	)
}

func (n *StoredTableNode) OutputExpressions() []expression.Expression {
	var out []expression.Expression
	for id := range n.Table.ColumnDefinitions() {
		columnID := schema.ColumnID(id)
		if n.isPruned(columnID) {
			continue
		}
		out = append(out, n.ColumnExpressionFor(columnID))
	}
	return out
}

func (n *StoredTableNode) IsColumnNullable(id schema.ColumnID) bool {
	cols := n.OutputExpressions()
	return cols[id].(*expression.LQPColumnExpression).Nullable
}

func (n *StoredTableNode) UniqueSets() []UniqueColumnCombination {
	var out []UniqueColumnCombination
	for _, constraint := range n.Table.UniqueConstraints() {
		combo := UniqueColumnCombination{}
		covered := true
		for _, col := range constraint.Columns {
			if n.isPruned(col) {
				covered = false
				break
			}
			combo.Expressions = append(combo.Expressions, n.ColumnExpressionFor(col))
		}
		if covered {
			out = append(out, combo)
		}
	}
	return out
}

func (n *StoredTableNode) Description() string {
	return fmt.Sprintf("[StoredTable] %s", n.TableName)
}

func (n *StoredTableNode) shallowHash(h *xxhash.Digest) {
	h.WriteString(n.TableName)

	pruned := n.PrunedColumnIDs()
	slices.Sort(pruned)
	for _, c := range pruned {
		writeUint64(h, uint64(c))
	}
}

func (n *StoredTableNode) shallowEquals(other Node, _ NodeMapping) bool {
	o := other.(*StoredTableNode)
	if n.TableName != o.TableName || len(n.prunedColumns) != len(o.prunedColumns) {
		return false
	}
	for c := range n.prunedColumns {
		if !o.isPruned(c) {
			return false
		}
	}
	return true
}

func (n *StoredTableNode) shallowCopy(_ NodeMapping) Node {
	copied := NewStoredTableNode(n.TableName, n.Table)
	if n.prunedColumns != nil {
		copied.SetPrunedColumnIDs(n.PrunedColumnIDs())
	}
	return copied
}
