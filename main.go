package main

import (
	"context"
	"log"
	"os"

	"github.com/dot5enko/column-query-engine/executor"
	"github.com/dot5enko/column-query-engine/expression"
	dbio "github.com/dot5enko/column-query-engine/io"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/manager"
	"github.com/dot5enko/column-query-engine/optimizer"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
	"github.com/dot5enko/column-query-engine/translator"
)

func buildOrdersTable() *storage.Table {
	columns := []storage.TableColumnDefinition{
		{Name: "id", Type: schema.Int32Type},
		{Name: "customer_id", Type: schema.Int32Type},
		{Name: "total", Type: schema.DoubleType},
	}

	rows := [][]any{
		{1, 10, 120.5},
		{2, 11, 89.0},
		{3, 10, 45.0},
		{4, 12, 300.0},
		{5, 11, 10.0},
		{6, 13, 77.7},
	}

	table := storage.TableFromRows(columns, rows, 3)
	table.AddSoftUniqueConstraint([]schema.ColumnID{0}, true)
	return table
}

func main() {

	sm := manager.Get()

	ordersTable := buildOrdersTable()
	storage.EncodeTableChunks(ordersTable, schema.Dictionary, schema.FixedSize2B)

	if err := sm.AddTable("orders", ordersTable); err != nil {
		panic(err)
	}

	// SELECT customer_id, SUM(total) FROM orders WHERE total > 40 GROUP BY customer_id
	orders := lqp.NewStoredTableNode("orders", ordersTable)
	customer := orders.ColumnExpressionFor(1)
	total := orders.ColumnExpressionFor(2)

	plan := lqp.NewAggregateNode(
		[]expression.Expression{customer},
		[]expression.Expression{expression.NewAggregate(expression.Sum, total)},
		lqp.NewPredicateNode(
			expression.NewBinaryPredicate(schema.GreaterThan, total, expression.NewValue(schema.Variant(40.0))),
			orders,
		),
	)

	optimized := optimizer.NewDefault().Optimize(plan)

	log.Printf("optimized plan:")
	lqp.Print(optimized, os.Stdout)

	rootOp, translateErr := translator.Translate(optimized)
	if translateErr != nil {
		panic(translateErr)
	}

	tasks := executor.TasksFromOperatorTree(rootOp)

	scheduler, schedErr := executor.NewPoolScheduler(0)
	if schedErr != nil {
		panic(schedErr)
	}
	defer scheduler.Shutdown()

	scheduler.Schedule(context.Background(), tasks...)
	if err := scheduler.WaitFor(tasks[len(tasks)-1]); err != nil {
		panic(err)
	}

	result := rootOp.Output()
	log.Printf("result rows: %d", result.RowCount())
	for row := uint64(0); row < result.RowCount(); row++ {
		log.Printf("  customer=%v sum=%v",
			result.GetValue(0, row),
			result.GetValue(1, row))
	}

	meta, _ := sm.GenerateMetaTable("segments")
	log.Printf("segment catalog has %d entries", meta.RowCount())

	dumpFile, createErr := os.Create("orders.dump")
	if createErr == nil {
		defer dumpFile.Close()
		if err := dbio.DumpTable(dumpFile, ordersTable); err != nil {
			log.Printf("dump failed: %v", err)
		}
	}
}
