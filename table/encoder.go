package table

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/AmrMurad1/plfsio/internal/block"
)

// Sentinel errors surfaced through Encoder's latched status, per
// spec.md §7's AssertionFailed/InvalidArgument kinds.
var (
	ErrTooManyTables  = errors.New("table: too many tables in epoch")
	ErrTooManyEpochs  = errors.New("table: too many epochs")
	ErrInvalidKey     = errors.New("table: invalid key")
	ErrEncoderClosed  = errors.New("table: encoder already finished")
)

// DataSink is the append-only byte sink the encoder writes data blocks
// to; dirstore.LogSink satisfies it.
type DataSink interface {
	Lwrite(b []byte) error
	Ltell() (uint64, error)
}

// IndexSink is the append-only byte sink the encoder writes index,
// filter, meta, and footer bytes to; dirstore.LogSink satisfies it.
type IndexSink interface {
	Lwrite(b []byte) error
	Ltell() (uint64, error)
}

// Options configures an Encoder, covering the subset of DirOptions
// (spec.md §6) that shapes table/block layout.
type Options struct {
	BlockSize            int
	BlockUtil            float64
	BlockBuffer          int
	BlockPadding         bool
	TailPadding          bool
	IndexBuffer          int
	DataRestartInterval  int
	IndexRestartInterval int
	MetaRestartInterval  int
	MaxTablesPerEpoch    uint32
	MaxEpochs            uint32
	UniqueKeys           bool
}

// DefaultOptions returns sane defaults matching spec.md §6's described
// effects.
func DefaultOptions() Options {
	return Options{
		BlockSize:            4096,
		BlockUtil:            0.996,
		BlockBuffer:          2 << 20,
		BlockPadding:         false,
		TailPadding:          false,
		IndexBuffer:          4096,
		DataRestartInterval:  16,
		IndexRestartInterval: 1,
		MetaRestartInterval:  1,
		MaxTablesPerEpoch:    1 << 24,
		MaxEpochs:            1 << 24,
		UniqueKeys:           false,
	}
}

type pendingIndex struct {
	sep    []byte
	handle block.Handle
}

// Encoder is the TableEncoder of spec.md §4.4: it consumes a sorted
// stream of records demarcated into tables (EndTable) and epochs
// (EndEpoch), emitting data blocks, per-table index/filter blocks, a
// single cross-epoch meta (epoch-index) block, and a footer.
type Encoder struct {
	opts      Options
	dataSink  DataSink
	indexSink IndexSink

	status error

	dataBlock  *block.Builder
	indexBlock *block.Builder
	metaBlock  *block.Builder

	pendingBuf      bytes.Buffer
	uncommitted     []pendingIndex
	pendingIndexSet bool
	pendingHandle   block.Handle
	pendingAbsolute bool

	smallestKey []byte
	largestKey  []byte
	lastKey     []byte
	tableEntries int

	epoch              uint32
	tablesInEpoch       uint32
	epochHasTable       bool
	finished            bool
}

// NewEncoder returns an Encoder writing to dataSink/indexSink.
func NewEncoder(opts Options, dataSink DataSink, indexSink IndexSink) *Encoder {
	return &Encoder{
		opts:       opts,
		dataSink:   dataSink,
		indexSink:  indexSink,
		dataBlock:  block.NewBuilder(opts.DataRestartInterval),
		indexBlock: block.NewBuilder(opts.IndexRestartInterval),
		metaBlock:  block.NewBuilder(opts.MetaRestartInterval),
	}
}

func (e *Encoder) fail(err error) error {
	if e.status == nil {
		e.status = err
	}
	return e.status
}

// Status returns the first error latched by the encoder, if any.
func (e *Encoder) Status() error { return e.status }

// Epoch returns the current epoch number, i.e. the number of epochs
// EndEpoch has actually closed so far. Callers can diff this across an
// EndEpoch call to tell a real advance from its no-op case.
func (e *Encoder) Epoch() uint32 { return e.epoch }

// Add appends one record to the current data block, per spec.md §4.4.
func (e *Encoder) Add(key, value []byte) error {
	if e.status != nil {
		return e.status
	}
	if e.finished {
		return e.fail(ErrEncoderClosed)
	}
	if len(key) == 0 {
		return e.fail(fmt.Errorf("%w: empty key", ErrInvalidKey))
	}

	if e.pendingIndexSet {
		sep := FindShortestSeparator(e.lastKey, key)
		e.uncommitted = append(e.uncommitted, pendingIndex{sep: sep, handle: e.pendingHandle})
		e.pendingIndexSet = false
	}

	if e.tableEntries == 0 {
		e.smallestKey = append(e.smallestKey[:0], key...)
	} else {
		cmp := bytesCompare(key, e.lastKey)
		if cmp < 0 {
			return e.fail(fmt.Errorf("%w: keys out of order", ErrInvalidKey))
		}
		if cmp == 0 && e.opts.UniqueKeys {
			return e.fail(fmt.Errorf("%w: duplicate key under unique_keys", ErrInvalidKey))
		}
	}
	e.largestKey = append(e.largestKey[:0], key...)

	e.dataBlock.Add(key, value)
	e.lastKey = append(e.lastKey[:0], key...)
	e.tableEntries++

	if e.opts.BlockBuffer > 0 && e.pendingBuf.Len() >= e.opts.BlockBuffer {
		if err := e.commit(); err != nil {
			return err
		}
	}
	threshold := float64(e.opts.BlockSize) * e.opts.BlockUtil
	if float64(e.dataBlock.EstimatedSize()+5) >= threshold {
		if err := e.flush(); err != nil {
			return err
		}
	}
	return nil
}

// flush finalizes the current data block into the in-memory pending
// buffer, recording its local offset/size for later absolutization at
// Commit, per spec.md §4.4.
func (e *Encoder) flush() error {
	if e.status != nil {
		return e.status
	}
	if e.dataBlock.Empty() {
		return nil
	}
	buf := e.dataBlock.Finish()
	finalized := block.Finalize(buf)
	size := len(finalized) - 5

	localOffset := e.pendingBuf.Len()
	e.pendingBuf.Write(finalized)
	if e.opts.BlockPadding && len(finalized) < e.opts.BlockSize {
		block.WriteZeroPad(&e.pendingBuf, e.opts.BlockSize-len(finalized))
	}

	e.pendingHandle = block.Handle{Offset: uint64(localOffset), Size: uint64(size)}
	e.pendingAbsolute = false
	e.pendingIndexSet = true

	e.dataBlock.Reset()
	return nil
}

// commit writes the accumulated pending buffer to the data sink in one
// append, then rewrites every local offset recorded since the last
// commit to be absolute within the data log, per spec.md §4.4.
func (e *Encoder) commit() error {
	if e.status != nil {
		return e.status
	}
	if e.pendingBuf.Len() == 0 {
		return nil
	}
	o, err := e.dataSink.Ltell()
	if err != nil {
		return e.fail(err)
	}
	if err := e.dataSink.Lwrite(e.pendingBuf.Bytes()); err != nil {
		return e.fail(err)
	}

	for _, p := range e.uncommitted {
		abs := block.Handle{Offset: o + p.handle.Offset, Size: p.handle.Size}
		e.indexBlock.Add(p.sep, abs.EncodeTo(nil))
	}
	e.uncommitted = e.uncommitted[:0]

	if e.pendingIndexSet && !e.pendingAbsolute {
		e.pendingHandle.Offset += o
		e.pendingAbsolute = true
	}

	e.pendingBuf.Reset()
	return nil
}

// EndTable finalizes the in-flight table (if any), writing its index
// block and, if filterBytes is non-empty, its filter block, then
// records a TableHandle for it in the meta (epoch-index) block, per
// spec.md §4.4.
func (e *Encoder) EndTable(filterBytes []byte) error {
	if e.status != nil {
		return e.status
	}
	if err := e.flush(); err != nil {
		return err
	}
	if e.pendingIndexSet {
		succ := FindShortSuccessor(e.lastKey)
		handle := e.pendingHandle
		e.uncommitted = append(e.uncommitted, pendingIndex{sep: succ, handle: handle})
		e.pendingIndexSet = false
	}
	if err := e.commit(); err != nil {
		return err
	}
	if e.tableEntries == 0 {
		return nil
	}

	idxBuf := e.indexBlock.Finish()
	idxFinalized := block.Finalize(idxBuf)
	ix, err := e.indexSink.Ltell()
	if err != nil {
		return e.fail(err)
	}
	if err := e.indexSink.Lwrite(idxFinalized); err != nil {
		return e.fail(err)
	}

	var filterOffset, filterSize uint64
	if len(filterBytes) > 0 {
		fo, err := e.indexSink.Ltell()
		if err != nil {
			return e.fail(err)
		}
		if err := e.indexSink.Lwrite(filterBytes); err != nil {
			return e.fail(err)
		}
		filterOffset = fo
		filterSize = uint64(len(filterBytes))
	}

	th := TableHandle{
		Index:        block.Handle{Offset: ix, Size: uint64(len(idxFinalized) - 5)},
		FilterOffset: filterOffset,
		FilterSize:   filterSize,
		SmallestKey:  e.smallestKey,
		LargestKey:   FindShortSuccessor(e.largestKey),
	}
	ekey := EncodeEpochKey(e.epoch, e.tablesInEpoch)
	e.metaBlock.Add(ekey, th.EncodeTo(nil))

	e.tablesInEpoch++
	if e.tablesInEpoch > e.opts.MaxTablesPerEpoch {
		return e.fail(ErrTooManyTables)
	}
	e.epochHasTable = true

	e.indexBlock.Reset()
	e.smallestKey = nil
	e.largestKey = nil
	e.lastKey = nil
	e.tableEntries = 0
	return nil
}

// EndEpoch closes the current epoch, flushing any in-flight table
// first. Calling EndEpoch when no record was added since the last
// barrier is a no-op (spec.md §8's Idempotence property).
func (e *Encoder) EndEpoch() error {
	if e.status != nil {
		return e.status
	}
	if err := e.EndTable(nil); err != nil {
		return err
	}
	if e.epochHasTable {
		e.epoch++
		e.tablesInEpoch = 0
		e.epochHasTable = false
		if e.epoch > e.opts.MaxEpochs {
			return e.fail(ErrTooManyEpochs)
		}
	}
	return nil
}

// Finish closes out the current epoch, finalizes the meta/epoch-index
// block, optionally tail-pads the index log, and appends the footer.
// No further operations are permitted after Finish.
func (e *Encoder) Finish() error {
	if e.status != nil {
		return e.status
	}
	if err := e.EndEpoch(); err != nil {
		return err
	}

	metaBuf := e.metaBlock.Finish()
	metaFinalized := block.Finalize(metaBuf)
	epochIdxOffset, err := e.indexSink.Ltell()
	if err != nil {
		return e.fail(err)
	}
	if err := e.indexSink.Lwrite(metaFinalized); err != nil {
		return e.fail(err)
	}
	footer := Footer{
		EpochIndexHandle: block.Handle{Offset: epochIdxOffset, Size: uint64(len(metaFinalized) - 5)},
		NumEpochs:        e.epoch,
	}

	if e.opts.TailPadding && e.opts.IndexBuffer > 0 {
		cur, err := e.indexSink.Ltell()
		if err != nil {
			return e.fail(err)
		}
		total := cur + FooterSize
		if rem := total % uint64(e.opts.IndexBuffer); rem != 0 {
			pad := uint64(e.opts.IndexBuffer) - rem
			var zbuf bytes.Buffer
			block.WriteZeroPad(&zbuf, int(pad))
			if err := e.indexSink.Lwrite(zbuf.Bytes()); err != nil {
				return e.fail(err)
			}
		}
	}

	if err := e.indexSink.Lwrite(footer.Encode()); err != nil {
		return e.fail(err)
	}
	e.finished = true
	return nil
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
