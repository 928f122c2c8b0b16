package indexstore

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// PostingsSchema is the Arrow-like table read_index hands back: one row
// per occurrence of a hash inside a text, per spec's "Arrow-like table
// (hash_id, text_id, positions)" contract — positions is modeled here
// as one row per position rather than a list column, so the rest of
// the store never needs array-typed SQL parameters.
var PostingsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "hash_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "text_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "position", Type: arrow.PrimitiveTypes.Int32},
}, nil)

// Postings is the in-memory result of read_index: the Arrow record
// plus the subset of the requested hashes that are actually known to
// the index (hash -> hash_id).
type Postings struct {
	Record arrow.Record
	Known  map[string]int64
}

// Release frees the underlying Arrow record's buffers.
func (p *Postings) Release() {
	if p != nil && p.Record != nil {
		p.Record.Release()
	}
}

// postingsBuilder accumulates occurrence rows and produces an
// arrow.Record on Finish.
type postingsBuilder struct {
	pool    memory.Allocator
	builder *array.RecordBuilder
}

func newPostingsBuilder() *postingsBuilder {
	pool := memory.NewGoAllocator()

	return &postingsBuilder{
		pool:    pool,
		builder: array.NewRecordBuilder(pool, PostingsSchema),
	}
}

func (b *postingsBuilder) append(hashID, textID int64, position int32) {
	b.builder.Field(0).(*array.Int64Builder).Append(hashID)
	b.builder.Field(1).(*array.Int64Builder).Append(textID)
	b.builder.Field(2).(*array.Int32Builder).Append(position)
}

func (b *postingsBuilder) finish() arrow.Record {
	defer b.builder.Release()

	return b.builder.NewRecord()
}

// Rows walks a Postings record, yielding each (hash_id, text_id,
// position) tuple — the only access pattern the query engine needs,
// since ranking is pushed down into SQL rather than computed over the
// Arrow arrays directly.
func (p *Postings) Rows(fn func(hashID, textID int64, position int32)) {
	if p == nil || p.Record == nil {
		return
	}

	hashIDs := p.Record.Column(0).(*array.Int64)
	textIDs := p.Record.Column(1).(*array.Int64)
	positions := p.Record.Column(2).(*array.Int32)

	n := int(p.Record.NumRows())

	for i := 0; i < n; i++ {
		fn(hashIDs.Value(i), textIDs.Value(i), positions.Value(i))
	}
}
