// Package jobs defines the canonical records moved through the harvest
// pipeline and their positional ledger row encodings.
package jobs

// Listing is one job posting pulled from a search-results page.
// Free-text fields may be empty when extraction fails for that field;
// a listing is only kept when an ID could be derived from its link.
type Listing struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	Link       string `json:"job_link"`
	PostedDate string `json:"posted_date,omitempty"`
	ID         string `json:"job_id"`
	ShortURL   string `json:"short_url"`
}

// Detail is one enriched posting, keyed by the listing ID. The manual
// fields stay blank at creation time and are filled by an operator in
// the Control ledger. Error is set when fetching or parsing the detail
// page failed; such a record carries only the ID and the error text.
type Detail struct {
	ID           string `json:"id"`
	Position     string `json:"position"`
	Company      string `json:"company"`
	Industry     string `json:"industry"`
	Role         string `json:"role"`
	Location     string `json:"location"`
	PostedDate   string `json:"date_posted"`
	AppliedDate  string `json:"date_applied"`
	Connections  string `json:"connections"`
	CoverLetter  string `json:"cover_letter"`
	ResumeUpload string `json:"resume_upload"`
	ResumeForm   string `json:"resume_form"`
	SalaryRange  string `json:"salary_range"`
	Notes        string `json:"notes"`
	Status       string `json:"status"`
	LatestWord   string `json:"latest_word"`
	Contact      string `json:"contact"`
	Shade        string `json:"shade"`
	Error        string `json:"error,omitempty"`
}

// Column positions inside ledger rows.
const (
	// StagingIDColumn is the job id column in NewJobs rows.
	StagingIDColumn = 5
	// StagingShortURLColumn is the short-URL column in NewJobs rows.
	StagingShortURLColumn = 6
	// KeyColumn is the identity column for Links, BlackList and Control rows.
	KeyColumn = 0
)

// Row encodes the listing in NewJobs column order.
func (l Listing) Row() []string {
	return []string{
		l.Title,
		l.Company,
		l.Location,
		l.Link,
		l.PostedDate,
		l.ID,
		l.ShortURL,
	}
}

// Row encodes the detail record in Control column order, error last.
func (d Detail) Row() []string {
	return []string{
		d.ID,
		d.Position,
		d.Company,
		d.Industry,
		d.Role,
		d.Location,
		d.PostedDate,
		d.AppliedDate,
		d.Connections,
		d.CoverLetter,
		d.ResumeUpload,
		d.ResumeForm,
		d.SalaryRange,
		d.Notes,
		d.Status,
		d.LatestWord,
		d.Contact,
		d.Shade,
		d.Error,
	}
}
