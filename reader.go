package dirstore

import (
	"bytes"

	"github.com/AmrMurad1/plfsio/internal/block"
	"github.com/AmrMurad1/plfsio/internal/filter"
	"github.com/AmrMurad1/plfsio/table"
)

// Saver is the caller-supplied sink Get/Gets invoke with (key, value)
// on a successful match, per the GLOSSARY.
type Saver func(key, value []byte)

// DirReader is the read path spec.md §4.6 describes: it opens a
// directory by decoding its footer, keeps the epoch-index block
// resident, and answers point lookups by descending epoch index ->
// table handle -> filter -> table index -> data block.
//
// Grounded on sstable/reader.go's Open/Get (footer read, index
// decode, sort.Search over index records), generalized to the
// epoch-index and per-table-filter descent spec.md requires.
type DirReader struct {
	opts     *DirOptions
	dataSrc  LogSource
	indexSrc LogSource

	epochIndex []byte
	numEpochs  uint32

	stats statsCounters
}

// Open reads the footer and epoch-index block of a directory, per
// spec.md §4.6.
func Open(opts *DirOptions, dataSrc, indexSrc LogSource) (*DirReader, error) {
	o := opts.norm()

	size, err := indexSrc.Size()
	if err != nil {
		return nil, Wrap(KindIOError, err)
	}
	if size < table.FooterSize {
		return nil, ErrCorruption
	}
	footerBytes, err := indexSrc.Read(size-table.FooterSize, table.FooterSize, nil)
	if err != nil {
		return nil, Wrap(KindIOError, err)
	}
	footer, err := table.DecodeFooter(footerBytes)
	if err != nil {
		return nil, ErrBadMagic
	}

	contents, err := block.ReadBlock(indexSrc, footer.EpochIndexHandle, o.VerifyChecksums)
	if err != nil {
		o.Logger.Printf("plfsio: Warning: epoch index block failed checksum verification: %v", err)
		return nil, ErrCorruption
	}

	dataSrc.Ref()
	indexSrc.Ref()
	o.Logger.Printf("plfsio: opened directory (%d epochs)", footer.NumEpochs)
	return &DirReader{
		opts:       o,
		dataSrc:    dataSrc,
		indexSrc:   indexSrc,
		epochIndex: contents.Data,
		numEpochs:  footer.NumEpochs,
	}, nil
}

// Close releases this reader's references on the data and index
// sources.
func (r *DirReader) Close() error {
	err1 := r.dataSrc.Unref()
	err2 := r.indexSrc.Unref()
	if err1 != nil {
		return err1
	}
	return err2
}

// Stats returns a snapshot of this reader's lookup counters.
func (r *DirReader) Stats() Stats { return r.stats.snapshot() }

// NumEpochs returns the number of epochs recorded in the footer.
func (r *DirReader) NumEpochs() uint32 { return r.numEpochs }

// Get looks up key within one epoch, invoking saver for every match,
// per spec.md §4.6.
func (r *DirReader) Get(key []byte, epoch uint32, saver Saver) error {
	epochIt, err := block.NewIter(r.epochIndex)
	if err != nil {
		return ErrCorruption
	}

	for tbl := uint32(0); ; tbl++ {
		ekey := table.EncodeEpochKey(epoch, tbl)
		epochIt.Seek(ekey)
		if !epochIt.Valid() || !bytes.Equal(epochIt.Key(), ekey) {
			break
		}
		th, _, ok := table.DecodeTableHandle(epochIt.Value())
		if !ok {
			return ErrCorruption
		}

		if bytesCompare(key, th.SmallestKey) < 0 || bytesCompare(key, th.LargestKey) > 0 {
			continue
		}
		if th.HasFilter() {
			filterBytes, err := r.indexSrc.Read(th.FilterOffset, th.FilterSize, nil)
			if err != nil {
				return Wrap(KindIOError, err)
			}
			if !filter.MayMatch(key, filterBytes) {
				continue
			}
		}

		found, err := r.scanTable(th, key, saver)
		if err != nil {
			return err
		}
		if found && r.opts.UniqueKeys {
			return nil
		}
	}
	return nil
}

// scanTable walks one table's index block, and within each candidate
// data block, emits saver on every exact key match, per spec.md §4.6's
// unique_keys Seek/SeekToFirst distinction.
func (r *DirReader) scanTable(th table.TableHandle, key []byte, saver Saver) (bool, error) {
	idxContents, err := block.ReadBlock(r.indexSrc, th.Index, r.opts.VerifyChecksums)
	if err != nil {
		return false, ErrCorruption
	}
	idxIt, err := block.NewIter(idxContents.Data)
	if err != nil {
		return false, ErrCorruption
	}
	idxIt.Seek(key)

	found := false
	for idxIt.Valid() {
		h, _, ok := block.DecodeHandle(idxIt.Value())
		if !ok {
			return found, ErrCorruption
		}
		dataContents, err := block.ReadBlock(r.dataSrc, h, r.opts.VerifyChecksums)
		if err != nil {
			return found, ErrCorruption
		}
		dataIt, err := block.NewIter(dataContents.Data)
		if err != nil {
			return found, ErrCorruption
		}

		if r.opts.UniqueKeys {
			dataIt.Seek(key)
		} else {
			dataIt.SeekToFirst()
			for dataIt.Valid() && bytesCompare(dataIt.Key(), key) < 0 {
				dataIt.Next()
			}
		}

		exhausted := false
		for dataIt.Valid() {
			c := bytesCompare(dataIt.Key(), key)
			if c == 0 {
				saver(dataIt.Key(), dataIt.Value())
				found = true
				if r.opts.UniqueKeys {
					return true, nil
				}
			} else if c > 0 {
				exhausted = true
				break
			}
			dataIt.Next()
		}
		if exhausted {
			break
		}
		idxIt.Next()
	}
	return found, nil
}

// Gets looks up key across every epoch, per spec.md §4.6: values
// accumulate across epochs when unique_keys=false, or stop at the
// first epoch with a hit when unique_keys=true.
func (r *DirReader) Gets(key []byte, saver Saver) error {
	for e := uint32(0); e < r.numEpochs; e++ {
		matched := false
		wrapped := func(k, v []byte) {
			matched = true
			saver(k, v)
		}
		if err := r.Get(key, e, wrapped); err != nil {
			return err
		}
		if matched {
			r.stats.records.Add(1)
			if r.opts.UniqueKeys {
				return nil
			}
		}
	}
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
