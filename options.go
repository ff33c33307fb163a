package dirstore

import (
	"log"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AmrMurad1/plfsio/internal/exec"
	"github.com/AmrMurad1/plfsio/internal/varint"
)

// DirOptions configures a DirLogger/DirReader pair, per spec.md §6.
type DirOptions struct {
	MemtableBuffer int64   `yaml:"memtable_buffer" validate:"gte=0"`
	BlockSize      int     `yaml:"block_size" validate:"gte=0"`
	BlockUtil      float64 `yaml:"block_util" validate:"gte=0,lte=1"`
	BlockBuffer    int     `yaml:"block_buffer" validate:"gte=0"`
	BlockPadding   bool    `yaml:"block_padding"`
	TailPadding    bool    `yaml:"tail_padding"`
	IndexBuffer    int     `yaml:"index_buffer" validate:"gte=0"`
	BFBitsPerKey   int     `yaml:"bf_bits_per_key" validate:"gte=0"`
	KeySize        int     `yaml:"key_size" validate:"gte=0"`
	ValueSize      int     `yaml:"value_size" validate:"gte=0"`
	LgParts        int     `yaml:"lg_parts" validate:"gte=0,lte=8"`
	UniqueKeys     bool    `yaml:"unique_keys"`
	VerifyChecksums bool   `yaml:"verify_checksums"`
	NonBlocking    bool    `yaml:"non_blocking"`

	MaxTablesPerEpoch uint32 `yaml:"max_tables_per_epoch" validate:"gte=0"`
	MaxEpochs         uint32 `yaml:"max_epochs" validate:"gte=0"`

	// CompactionPool is the executor background compaction is
	// submitted to; nil selects the package's default pool
	// (spec.md §6's "compaction_pool" collaborator handle).
	CompactionPool exec.Executor `yaml:"-"`

	// Logger receives lifecycle/warning messages (compaction results,
	// directory opened, epoch-index read failure); nil selects log.Default(), matching
	// the teacher's package-level log.Printf calls.
	Logger *log.Logger `yaml:"-"`
}

var validate = validator.New()

// norm returns a copy of o with zero-valued fields defaulted, the same
// shape as bsm-sntable's WriterOptions.norm().
func (o *DirOptions) norm() *DirOptions {
	var oo DirOptions
	if o != nil {
		oo = *o
	}

	if oo.MemtableBuffer <= 0 {
		oo.MemtableBuffer = 4 << 20
	}
	if oo.BlockSize <= 0 {
		oo.BlockSize = 4096
	}
	if oo.BlockUtil <= 0 {
		oo.BlockUtil = 0.996
	}
	if oo.BlockBuffer <= 0 {
		oo.BlockBuffer = 2 << 20
	}
	if oo.IndexBuffer <= 0 {
		oo.IndexBuffer = 4096
	}
	if oo.KeySize <= 0 {
		oo.KeySize = 16
	}
	if oo.ValueSize <= 0 {
		oo.ValueSize = 32
	}
	if oo.MaxTablesPerEpoch == 0 {
		oo.MaxTablesPerEpoch = 1 << 24
	}
	if oo.MaxEpochs == 0 {
		oo.MaxEpochs = 1 << 24
	}
	if oo.CompactionPool == nil {
		oo.CompactionPool = exec.Default()
	}
	if oo.Logger == nil {
		oo.Logger = log.Default()
	}

	return &oo
}

// LoadOptions reads and validates a DirOptions from a YAML file.
func LoadOptions(path string) (*DirOptions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrap(KindIOError, err)
	}
	var o DirOptions
	if err := yaml.Unmarshal(b, &o); err != nil {
		return nil, Wrap(KindInvalidArgument, err)
	}
	if err := validate.Struct(&o); err != nil {
		return nil, Wrap(KindInvalidArgument, err)
	}
	return o.norm(), nil
}

// bytesPerEntry estimates the on-disk size of one (key, value) record,
// including the block builder's per-entry overhead (shared/unshared/
// value-length varints plus the fixed 4-byte header), mirroring
// deltafs_plfsio_internal.cc:548-551's overhead_per_entry computation.
func (o *DirOptions) bytesPerEntry() int64 {
	overhead := int64(4 + varint.Len(uint64(o.KeySize)) + varint.Len(uint64(o.ValueSize)))
	return int64(o.KeySize) + int64(o.ValueSize) + overhead
}

// entriesPerTable estimates how many records fit in one table's share
// of memtable_buffer, honoring lg_parts partitioning (spec.md §9 Open
// Question (a)) and the double-buffered mem/imm split, mirroring
// deltafs_plfsio_internal.cc:548-572's entries_per_tb_ computation.
func (o *DirOptions) entriesPerTable() int64 {
	totalBitsPerEntry := 8*o.bytesPerEntry() + int64(o.BFBitsPerKey)
	if totalBitsPerEntry <= 0 {
		totalBitsPerEntry = 1
	}
	parts := int64(1) << uint(o.LgParts)

	n := int64(math.Ceil(8 * float64(o.MemtableBuffer) / float64(totalBitsPerEntry)))
	n /= parts
	n /= 2 // double buffering
	if n < 1 {
		n = 1
	}
	return n
}

// tableByteBudget returns tb_bytes_: the byte size at which the active
// write buffer is considered full and swapped out for compaction.
func (o *DirOptions) tableByteBudget() int64 {
	return o.entriesPerTable() * o.bytesPerEntry()
}

// filterEntries returns the entry count a table's bloom filter should
// be sized for (bf_bits_ / bf_bits_per_key in the original), or 0 if
// filters are disabled.
func (o *DirOptions) filterEntries() int {
	if o.BFBitsPerKey <= 0 {
		return 0
	}
	return int(o.entriesPerTable())
}
