package model

// ExtractResult is the extraction-only view of one page.
type ExtractResult struct {
	URL     string         `json:"url"`
	Links   []Link         `json:"links"`
	Summary ExtractSummary `json:"summary"`
}

// ExtractSummary counts the links found on a page.
type ExtractSummary struct {
	TotalLinks int              `json:"totalLinks"`
	ByRegion   map[string]int   `json:"byRegion"`
	ByCategory map[Category]int `json:"byCategory"`
	BySection  map[string]int   `json:"bySection"`
}

// AuditResult is the full extraction, validation and availability view of
// one page.
type AuditResult struct {
	URL                   string                       `json:"url"`
	Stats                 Stats                        `json:"stats"`
	LinksByCategory       map[Category][]Link          `json:"linksByCategory"`
	LinksBySection        map[string]map[string][]Link `json:"linksBySection"`
	SectionCategoryMatrix map[string]map[Category]int  `json:"sectionCategoryMatrix"`
	DetailedResults       []Link                       `json:"detailedResults"`
}

// Stats aggregates the audit outcome of one page.
type Stats struct {
	TotalLinks     int                        `json:"totalLinks"`
	ByCategory     map[Category]int           `json:"byCategory"`
	BySection      map[string]int             `json:"bySection"`
	CategoryDetail map[Category]CategoryStats `json:"categoryDetail"`
	SectionDetail  map[string]SectionStats    `json:"sectionDetail"`
	Totals         OutcomeCounts              `json:"totals"`
}

// OutcomeCounts tallies validation and availability outcomes.
type OutcomeCounts struct {
	Valid       int `json:"valid"`
	Invalid     int `json:"invalid"`
	Available   int `json:"available"`
	Unavailable int `json:"unavailable"`
	Redirected  int `json:"redirected"`
	Errors      int `json:"errors"`
}

// Add accumulates o into c.
func (c *OutcomeCounts) Add(o OutcomeCounts) {
	c.Valid += o.Valid
	c.Invalid += o.Invalid
	c.Available += o.Available
	c.Unavailable += o.Unavailable
	c.Redirected += o.Redirected
	c.Errors += o.Errors
}

// CategoryStats is the per-category stat block.
type CategoryStats struct {
	Total int `json:"total"`
	OutcomeCounts
}

// SectionStats is the per-section stat block.
type SectionStats struct {
	Total      int              `json:"total"`
	Titles     []string         `json:"titles"`
	Categories map[Category]int `json:"categories"`
	OutcomeCounts
}

// BatchResult is the audit outcome of one seed URL in a batch.
type BatchResult struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*AuditResult
}

// BatchFailure records a seed URL whose crawl failed as a whole.
type BatchFailure struct {
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Status int    `json:"upstreamStatus,omitempty"`
	Error  string `json:"error"`
}

// BatchResponse is the outcome of a multi-URL audit.
type BatchResponse struct {
	Results  []BatchResult  `json:"results"`
	Failures []BatchFailure `json:"failures"`
	Summary  BatchSummary   `json:"summary"`
}

// BatchSummary aggregates the successful audits of a batch.
type BatchSummary struct {
	TotalURLs     int              `json:"totalUrls"`
	Successful    int              `json:"successful"`
	Failed        int              `json:"failed"`
	TotalLinks    int              `json:"totalLinks"`
	Totals        OutcomeCounts    `json:"totals"`
	ByCategory    map[Category]int `json:"byCategory"`
	BySection     map[string]int   `json:"bySection"`
	TopCategories []RankedCount    `json:"topCategories"`
	TopSections   []RankedCount    `json:"topSections"`
}

// RankedCount is one entry of a top-N ranking.
type RankedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
