package manager

import (
	"fmt"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// Meta tables expose catalog state as regular tables: tables, columns,
// chunks, segments.

func (m *StorageManager) GenerateMetaTable(name string) (*storage.Table, error) {
	switch name {
	case "tables":
		return m.metaTables(), nil
	case "columns":
		return m.metaColumns(), nil
	case "chunks":
		return m.metaChunks(), nil
	case "segments":
		return m.metaSegments(), nil
	default:
		return nil, fmt.Errorf("unknown meta table %q", name)
	}
}

func (m *StorageManager) metaTables() *storage.Table {
	columns := []storage.TableColumnDefinition{
		{Name: "table", Type: schema.StringType},
		{Name: "column_count", Type: schema.Int64Type},
		{Name: "chunk_count", Type: schema.Int64Type},
		{Name: "row_count", Type: schema.Int64Type},
	}

	var rows [][]any
	for _, name := range m.TableNames() {
		table, _ := m.GetTable(name)
		rows = append(rows, []any{
			name,
			int64(table.ColumnCount()),
			int64(table.ChunkCount()),
			int64(table.RowCount()),
		})
	}
	return storage.TableFromRows(columns, rows, storage.DefaultTargetChunkSize)
}

func (m *StorageManager) metaColumns() *storage.Table {
	columns := []storage.TableColumnDefinition{
		{Name: "table", Type: schema.StringType},
		{Name: "column", Type: schema.StringType},
		{Name: "data_type", Type: schema.StringType},
		{Name: "nullable", Type: schema.Int32Type},
	}

	var rows [][]any
	for _, name := range m.TableNames() {
		table, _ := m.GetTable(name)
		for _, col := range table.ColumnDefinitions() {
			nullable := int32(0)
			if col.Nullable {
				nullable = 1
			}
			rows = append(rows, []any{name, col.Name, col.Type.String(), nullable})
		}
	}
	return storage.TableFromRows(columns, rows, storage.DefaultTargetChunkSize)
}

func (m *StorageManager) metaChunks() *storage.Table {
	columns := []storage.TableColumnDefinition{
		{Name: "table", Type: schema.StringType},
		{Name: "chunk_id", Type: schema.Int64Type},
		{Name: "row_count", Type: schema.Int64Type},
		{Name: "invalid_row_count", Type: schema.Int64Type},
		{Name: "cleanup_commit_id", Type: schema.Int64Type, Nullable: true},
	}

	var rows [][]any
	for _, name := range m.TableNames() {
		table, _ := m.GetTable(name)
		count := table.ChunkCount()
		for chunkID := schema.ChunkID(0); chunkID < count; chunkID++ {
			chunk := table.GetChunk(chunkID)
			var cleanup any
			if id, set := chunk.CleanupCommitID(); set {
				cleanup = int64(id)
			}
			rows = append(rows, []any{
				name,
				int64(chunkID),
				int64(chunk.Size()),
				int64(chunk.InvalidRowCount()),
				cleanup,
			})
		}
	}
	return storage.TableFromRows(columns, rows, storage.DefaultTargetChunkSize)
}

func (m *StorageManager) metaSegments() *storage.Table {
	columns := []storage.TableColumnDefinition{
		{Name: "table", Type: schema.StringType},
		{Name: "chunk_id", Type: schema.Int64Type},
		{Name: "column", Type: schema.StringType},
		{Name: "encoding", Type: schema.StringType},
		{Name: "estimated_size_in_bytes", Type: schema.Int64Type},
	}

	var rows [][]any
	for _, name := range m.TableNames() {
		table, _ := m.GetTable(name)
		count := table.ChunkCount()
		for chunkID := schema.ChunkID(0); chunkID < count; chunkID++ {
			chunk := table.GetChunk(chunkID)
			for c, col := range table.ColumnDefinitions() {
				segment := chunk.GetSegment(schema.ColumnID(c))
				rows = append(rows, []any{
					name,
					int64(chunkID),
					col.Name,
					segment.EncodingKind().String(),
					int64(segment.MemoryUsage()),
				})
			}
		}
	}
	return storage.TableFromRows(columns, rows, storage.DefaultTargetChunkSize)
}
