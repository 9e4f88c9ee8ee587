/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts cross the wire as decimal strings ("125.50"), never floats.
  Handlers parse them with shopspring/decimal and reject anything that
  doesn't parse.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	BeginningBalance string `json:"beginning_balance"`
	Balance          string `json:"balance,omitempty"`
	CreatedOn        string `json:"created_on"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	Name             string `json:"name"`
	BeginningBalance string `json:"beginning_balance"`
	CreatedOn        string `json:"created_on,omitempty"` // defaults to today
}

// BalancesDTO is the replay result for one as-of date.
type BalancesDTO struct {
	AsOf     string            `json:"as_of"`
	Balances map[string]string `json:"balances"`
	Total    string            `json:"total"`
}

// =============================================================================
// ENTRIES
// =============================================================================

// CreateEntryRequest is the request to record any of the four financial
// entry kinds. Kind selects which fields are read; Proceed resolves a
// previously returned out-of-period warning.
type CreateEntryRequest struct {
	Kind        string `json:"kind"` // payment | deposit | transfer | adjustment
	AccountID   string `json:"account_id,omitempty"`
	FromAccount string `json:"from_account_id,omitempty"`
	ToAccount   string `json:"to_account_id,omitempty"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Received    *bool  `json:"received,omitempty"` // deposits; defaults true
	Proceed     bool   `json:"proceed,omitempty"`
}

// EntryDTO represents one entry in listings.
type EntryDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	AccountID   string `json:"account_id,omitempty"`
	FromAccount string `json:"from_account_id,omitempty"`
	ToAccount   string `json:"to_account_id,omitempty"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Received    *bool  `json:"received,omitempty"`
}

// OutsidePeriodDTO is the 409 payload for an entry dated outside the
// open month. The client shows the message and either drops the entry
// (Cancel) or resubmits with proceed=true (Proceed).
type OutsidePeriodDTO struct {
	Warning         string `json:"warning"`
	OpenPeriod      string `json:"open_period"`
	CandidatePeriod string `json:"candidate_period"`
	CandidateDate   string `json:"candidate_date"`
}

// =============================================================================
// OPEN MONTH / CLOSE / REOPEN
// =============================================================================

// OpenMonthDTO represents the user's open-month state.
type OpenMonthDTO struct {
	Period         string `json:"period"` // "2025-03"
	Label          string `json:"label"`  // "March 2025"
	HasData        bool   `json:"has_data"`
	FirstDataAt    string `json:"first_data_at,omitempty"`
	FirstDataFrom  string `json:"first_data_source,omitempty"`
	ReopenCount    int    `json:"reopen_count"`
	LastReopenedAt string `json:"last_reopened_at,omitempty"`
}

// AdvanceRequest moves the open month to the month containing the date.
type AdvanceRequest struct {
	Date string `json:"date"`
}

// ChecklistItemDTO is one advisory pre-close check.
type ChecklistItemDTO struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// CloseRequest carries the two explicit confirmations the close screen
// collects, plus optional audit notes.
type CloseRequest struct {
	TotalsReviewed   bool   `json:"totals_reviewed"`
	FinalLockConsent bool   `json:"final_lock_consent"`
	Notes            string `json:"notes,omitempty"`
}

// CloseResultDTO reports a successful close.
type CloseResultDTO struct {
	ClosedPeriod     string             `json:"closed_period"`
	NewPeriod        string             `json:"new_period"`
	AccountSnapshots int                `json:"account_snapshots"`
	Checklist        []ChecklistItemDTO `json:"checklist"`
}

// CloseRecordDTO is one row of the close history.
type CloseRecordDTO struct {
	Period   string `json:"period"`
	ClosedAt string `json:"closed_at"`
	ClosedBy string `json:"closed_by,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// ReopenResultDTO reports a successful reopen.
type ReopenResultDTO struct {
	ReopenedPeriod string `json:"reopened_period"`
	ReopenCount    int    `json:"reopen_count"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DashboardDTO is the per-month aggregate view. For the open month the
// numbers are computed live; for a closed month they come from the
// frozen snapshot and Frozen is true.
type DashboardDTO struct {
	Period           string `json:"period"`
	TotalSpent       string `json:"total_spent"`
	TotalIncome      string `json:"total_income"`
	BeginningBalance string `json:"beginning_balance"`
	EndingBalance    string `json:"ending_balance"`
	NetWorth         string `json:"net_worth"`
	Frozen           bool   `json:"frozen"`
	Stale            bool   `json:"stale,omitempty"`
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

// RecurringTemplateDTO represents a recurring entry template.
type RecurringTemplateDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	DayOfMonth  int    `json:"day_of_month"`
	NextRun     string `json:"next_run"`
	Active      bool   `json:"active"`
}

// CreateRecurringRequest creates a recurring template. NextRun defaults
// to the user's open month.
type CreateRecurringRequest struct {
	Kind        string `json:"kind"` // payment | deposit
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	DayOfMonth  int    `json:"day_of_month"`
	NextRun     string `json:"next_run,omitempty"` // "2025-03"
}

// RunRecurringResponse reports how many entries a generator run created.
type RunRecurringResponse struct {
	Generated int `json:"generated"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
