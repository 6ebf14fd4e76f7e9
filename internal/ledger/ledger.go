// Package ledger defines the external tabular store interface the
// reconciler works against. Ledgers are shared, externally persisted
// tables that other processes and people read and write concurrently;
// no provider offers transactional guarantees across calls.
package ledger

import "context"

// The four ledgers this pipeline touches. It never creates or deletes
// a ledger, only reads, appends and clears existing ones by name.
const (
	// NewJobs stages candidate records not yet confirmed sent.
	NewJobs = "NewJobs"
	// Links is the source of truth for postings already forwarded.
	Links = "Links"
	// BlackList holds links to permanently ignore.
	BlackList = "BlackList"
	// Control holds per-job detail records and manual tracking state.
	Control = "Control"
)

// Row is one positional ledger row. Row zero of a non-empty ledger is
// its header.
type Row []string

// Header returns the canonical header row for the named ledger.
// External providers are provisioned with these out of band; the
// memory provider seeds them itself.
func Header(name string) Row {
	switch name {
	case NewJobs:
		return Row{"Title", "Company", "Location", "Link", "Posted Date", "Job ID", "Short URL"}
	case Links, BlackList:
		return Row{"Link"}
	case Control:
		return Row{
			"ID", "Position", "Company", "Industry", "Role", "Location",
			"Date Posted", "Date Applied", "Connections", "Cover Letter",
			"Resume Upload", "Resume Form", "Salary Range", "Notes",
			"Status", "Latest Word", "Contact", "Shade", "Error",
		}
	default:
		return nil
	}
}

// Store exposes the tabular ledger operations. Reads return rows in
// table order including the header; appends preserve input order.
type Store interface {
	ReadAllRows(ctx context.Context, name string) ([]Row, error)
	AppendRows(ctx context.Context, name string, rows []Row) error
	Clear(ctx context.Context, name string) error
	Close() error
}
