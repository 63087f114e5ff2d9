// Package io dumps tables to a compact binary stream and restores them.
// Column payloads travel lz4-compressed; every dump carries a file id so
// restores can be traced in logs.
package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/dot5enko/column-query-engine/compression"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

const dumpMagic = uint32(0xc01db10c)

var ErrBadDump = fmt.Errorf("not a table dump")

// DumpTable writes a materialized data table. Reference tables must be
// materialized by the caller first.
func DumpTable(w io.Writer, table *storage.Table) error {
	if table.Type() != storage.DataTable {
		return fmt.Errorf("only data tables can be dumped")
	}

	dumpID := uuid.New()

	header := bytes.Buffer{}
	binary.Write(&header, binary.LittleEndian, dumpMagic)
	header.Write(dumpID[:])

	columns := table.ColumnDefinitions()
	binary.Write(&header, binary.LittleEndian, uint16(len(columns)))
	for _, col := range columns {
		writeString(&header, col.Name)
		header.WriteByte(byte(col.Type))
		if col.Nullable {
			header.WriteByte(1)
		} else {
			header.WriteByte(0)
		}
	}

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}

	chunkCount := table.ChunkCount()
	if err := binary.Write(w, binary.LittleEndian, uint32(chunkCount)); err != nil {
		return err
	}

	written := 0
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		n, err := dumpChunk(w, table, table.GetChunk(chunkID))
		if err != nil {
			return fmt.Errorf("dump chunk %d: %w", chunkID, err)
		}
		written += n
	}

	slog.Info("dumped table", "dump_id", dumpID.String(), "chunks", chunkCount, "payload_bytes", written)
	return nil
}

func dumpChunk(w io.Writer, table *storage.Table, chunk *storage.Chunk) (int, error) {
	if err := binary.Write(w, binary.LittleEndian, uint32(chunk.Size())); err != nil {
		return 0, err
	}

	total := 0
	for col := range table.ColumnDefinitions() {
		raw := bytes.Buffer{}
		chunk.GetSegment(schema.ColumnID(col)).ForEachValue(nil, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
			raw.Write(v.AppendKeyBytes(nil))
		})

		compressed := bytes.Buffer{}
		if err := compression.CompressLz4(raw.Bytes(), &compressed); err != nil {
			return total, err
		}

		if err := binary.Write(w, binary.LittleEndian, uint32(compressed.Len())); err != nil {
			return total, err
		}
		n, err := w.Write(compressed.Bytes())
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// RestoreTable reads a dump back into a fresh data table.
func RestoreTable(r io.Reader) (*storage.Table, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != dumpMagic {
		return nil, ErrBadDump
	}

	var dumpID uuid.UUID
	if _, err := io.ReadFull(r, dumpID[:]); err != nil {
		return nil, err
	}

	var columnCount uint16
	if err := binary.Read(r, binary.LittleEndian, &columnCount); err != nil {
		return nil, err
	}

	columns := make([]storage.TableColumnDefinition, columnCount)
	for i := range columns {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		var meta [2]byte
		if _, err := io.ReadFull(r, meta[:]); err != nil {
			return nil, err
		}
		columns[i] = storage.TableColumnDefinition{
			Name:     name,
			Type:     schema.DataType(meta[0]),
			Nullable: meta[1] == 1,
		}
	}

	table := storage.NewTable(columns, storage.DataTable, 0)

	var chunkCount uint32
	if err := binary.Read(r, binary.LittleEndian, &chunkCount); err != nil {
		return nil, err
	}

	for c := uint32(0); c < chunkCount; c++ {
		if err := restoreChunk(r, table, columns); err != nil {
			return nil, fmt.Errorf("restore chunk %d: %w", c, err)
		}
	}

	slog.Info("restored table", "dump_id", dumpID.String(), "chunks", chunkCount)
	return table, nil
}

func restoreChunk(r io.Reader, table *storage.Table, columns []storage.TableColumnDefinition) error {
	var rowCount uint32
	if err := binary.Read(r, binary.LittleEndian, &rowCount); err != nil {
		return err
	}

	segments := make([]storage.Segment, len(columns))
	for i, col := range columns {
		var payloadLen uint32
		if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
			return err
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}

		raw, err := compression.DecompressLz4(payload)
		if err != nil {
			return err
		}

		seg, err := decodeSegment(raw, col, int(rowCount))
		if err != nil {
			return err
		}
		segments[i] = seg
	}

	table.AppendChunk(segments).Finalize()
	return nil
}

func decodeSegment(raw []byte, col storage.TableColumnDefinition, rows int) (storage.Segment, error) {
	seg := storage.NewValueSegmentForType(col.Type, true)

	pos := 0
	for i := 0; i < rows; i++ {
		if pos >= len(raw) {
			return nil, fmt.Errorf("truncated segment payload")
		}

		tag := schema.DataType(raw[pos])
		pos++

		var v schema.AllTypeVariant
		switch tag {
		case schema.NullType:
			v = schema.NullValue()
		case schema.Int32Type, schema.Int64Type:
			if pos+8 > len(raw) {
				return nil, fmt.Errorf("truncated numeric cell")
			}
			bitsVal := binary.LittleEndian.Uint64(raw[pos:])
			pos += 8
			if tag == schema.Int32Type {
				v = schema.Variant(int32(int64(bitsVal)))
			} else {
				v = schema.Variant(int64(bitsVal))
			}
		case schema.FloatType, schema.DoubleType:
			if pos+8 > len(raw) {
				return nil, fmt.Errorf("truncated numeric cell")
			}
			f := readFloatBits(raw[pos:])
			pos += 8
			if tag == schema.FloatType {
				v = schema.Variant(float32(f))
			} else {
				v = schema.Variant(f)
			}
		case schema.StringType:
			if pos+4 > len(raw) {
				return nil, fmt.Errorf("truncated string cell")
			}
			n := int(binary.LittleEndian.Uint32(raw[pos:]))
			pos += 4
			if pos+n > len(raw) {
				return nil, fmt.Errorf("truncated string cell")
			}
			v = schema.Variant(string(raw[pos : pos+n]))
			pos += n
		default:
			return nil, fmt.Errorf("unknown cell tag %d", tag)
		}

		storage.AppendVariant(seg, v)
	}

	return seg, nil
}

func readFloatBits(raw []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(raw))
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
