package ingest

import "fmt"

// Fault is a fatal ingestion error. The run stops at the first Fault and
// writes nothing.
type Fault struct {
	Table string
	Row   int   // 1-based data row, 0 when not row specific
	JobID int64 // posting id, 0 when not known
	Err   error
}

func (f *Fault) Error() string {
	switch {
	case f.JobID != 0:
		return fmt.Sprintf("ingest: %s: posting %d: %v", f.Table, f.JobID, f.Err)
	case f.Row != 0:
		return fmt.Sprintf("ingest: %s: row %d: %v", f.Table, f.Row, f.Err)
	default:
		return fmt.Sprintf("ingest: %s: %v", f.Table, f.Err)
	}
}

func (f *Fault) Unwrap() error { return f.Err }
