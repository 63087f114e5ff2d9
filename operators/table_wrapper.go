package operators

import (
	"context"

	"github.com/dot5enko/column-query-engine/storage"
)

// TableWrapper turns an existing table into an operator so plans can
// start from it.
type TableWrapper struct {
	base

	table *storage.Table
}

func NewTableWrapper(table *storage.Table) *TableWrapper {
	return &TableWrapper{base: newBase("TableWrapper", nil, nil), table: table}
}

func (op *TableWrapper) Execute(ctx context.Context) error {
	return op.runOnce(ctx, func(context.Context) (*storage.Table, error) {
		return op.table, nil
	})
}

func (op *TableWrapper) DeepCopy() Operator {
	return NewTableWrapper(op.table)
}
