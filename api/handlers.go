/*
handlers.go - HTTP API handlers for the BudgetHQ core

PURPOSE:
  Exposes the budgeting engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts               List accounts with live balances
    POST   /api/accounts               Create account
    GET    /api/accounts/{id}          Get one account
    DELETE /api/accounts/{id}          Soft-delete account
    GET    /api/balances               Replay balances as of a date

  Entries:
    POST   /api/entries                Record any of the four entry kinds
    GET    /api/entries                List entries in a month
    DELETE /api/entries/{kind}/{id}    Soft-delete an entry

  Open month:
    GET    /api/open-month             Current open-month state
    POST   /api/open-month/advance     Move the open month to a date's month

  Close / reopen:
    GET    /api/close/checklist        Advisory pre-close checks
    POST   /api/close                  Soft-close the open month
    GET    /api/close/history          Close audit log
    POST   /api/reopen                 Reopen the previous month

  Dashboard:
    GET    /api/dashboard              Month aggregates (live or frozen)

  Recurring:
    GET    /api/recurring              List templates
    POST   /api/recurring              Create template
    POST   /api/recurring/run          Generate due entries

IDENTITY:
  Every route requires an X-User-ID header. The core trusts the header;
  authenticating it is the boundary's job, not this package's.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (openmonth, replay engine)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, eligibility refusals
  - 404: Resource not found
  - 409: Out-of-period warning awaiting Cancel/Proceed, double close
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgethq/budgethq/ledger"
	"github.com/budgethq/budgethq/openmonth"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     ledger.Store
	Manager   *openmonth.Manager
	Engine    *ledger.ReplayEngine
	Recorder  *openmonth.Recorder
	Closer    *openmonth.Closer
	Reopener  *openmonth.Reopener
	Generator *openmonth.Generator
}

// NewHandler wires the domain components around the given store.
func NewHandler(store ledger.Store) *Handler {
	manager := openmonth.NewManager(store)
	engine := ledger.NewReplayEngine(store)
	return &Handler{
		Store:     store,
		Manager:   manager,
		Engine:    engine,
		Recorder:  openmonth.NewRecorder(store, manager),
		Closer:    openmonth.NewCloser(store, manager),
		Reopener:  openmonth.NewReopener(store, manager),
		Generator: openmonth.NewGenerator(store, manager),
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the user's active accounts with balances replayed
// as of today.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	accounts, err := h.Store.ListAccounts(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}
	balances, err := h.Engine.BalancesAsOf(r.Context(), user, ledger.DateOf(h.Manager.Clock()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balances", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
		if b, ok := balances[a.ID]; ok {
			dtos[i].Balance = b.String()
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates a new account with a fixed beginning balance.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Account name is required", nil)
		return
	}

	beginning := decimal.Zero
	if req.BeginningBalance != "" {
		var err error
		beginning, err = decimal.NewFromString(req.BeginningBalance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid beginning_balance (use a decimal string)", err)
			return
		}
	}

	createdOn := ledger.DateOf(h.Manager.Clock())
	if req.CreatedOn != "" {
		var err error
		createdOn, err = ledger.ParseDate(req.CreatedOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid created_on format (use YYYY-MM-DD)", err)
			return
		}
	}

	account := ledger.Account{
		ID:               ledger.AccountID(uuid.NewString()),
		UserID:           user,
		Name:             req.Name,
		BeginningBalance: beginning,
		CachedBalance:    beginning,
		CreatedOn:        createdOn,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.Store.SaveAccount(r.Context(), account); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	id := ledger.AccountID(chi.URLParam(r, "id"))

	account, err := h.Store.GetAccount(r.Context(), user, id)
	if err != nil {
		handleDomainError(w, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*account))
}

// DeleteAccount soft-deletes an account. Its entries keep replaying.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	id := ledger.AccountID(chi.URLParam(r, "id"))

	if err := h.Store.SoftDeleteAccount(r.Context(), user, id); err != nil {
		handleDomainError(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalances replays all account balances as of a date (default today).
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	asOf := ledger.DateOf(h.Manager.Clock())
	if s := r.URL.Query().Get("as_of"); s != "" {
		var err error
		asOf, err = ledger.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of format (use YYYY-MM-DD)", err)
			return
		}
	}

	balances, err := h.Engine.BalancesAsOf(r.Context(), user, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balances", err)
		return
	}

	out := BalancesDTO{AsOf: asOf.String(), Balances: make(map[string]string, len(balances))}
	total := decimal.Zero
	for id, b := range balances {
		out.Balances[string(id)] = b.String()
		total = total.Add(b)
	}
	out.Total = total.String()
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// CreateEntry records a payment, deposit, transfer or adjustment. A date
// outside the open month returns 409 with the warning payload; the
// client resubmits with proceed=true to advance the month and save.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := buildEntry(user, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}

	if err := h.Recorder.Record(r.Context(), entry, req.Proceed); err != nil {
		var warning *ledger.OutsidePeriodWarning
		if errors.As(err, &warning) {
			writeJSON(w, http.StatusConflict, OutsidePeriodDTO{
				Warning:         warning.Error(),
				OpenPeriod:      warning.OpenPeriod.String(),
				CandidatePeriod: warning.CandidatePeriod.String(),
				CandidateDate:   warning.CandidateDate.String(),
			})
			return
		}
		handleDomainError(w, "Failed to record entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// ListEntries returns the entries dated within a month (default: the
// open month).
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	period, ok := h.resolvePeriod(w, r)
	if !ok {
		return
	}

	entries, err := h.Store.ListEntriesInPeriod(r.Context(), user, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteEntry soft-deletes an entry; the row survives for replay.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	kind := ledger.EntryKind(chi.URLParam(r, "kind"))
	id := ledger.EntryID(chi.URLParam(r, "id"))

	if err := h.Recorder.Delete(r.Context(), user, kind, id); err != nil {
		handleDomainError(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// OPEN-MONTH HANDLERS
// =============================================================================

// GetOpenMonth returns the user's open-month state, creating it lazily
// on first access.
func (h *Handler) GetOpenMonth(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	state, err := h.Manager.ForUser(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load open month", err)
		return
	}
	writeJSON(w, http.StatusOK, toOpenMonthDTO(state))
}

// AdvanceOpenMonth moves the open month to the month containing the
// given date, forward or backward.
func (h *Handler) AdvanceOpenMonth(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	if _, err := h.Manager.AdvanceTo(r.Context(), user, date); err != nil {
		handleDomainError(w, "Failed to advance open month", err)
		return
	}

	state, err := h.Manager.ForUser(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load open month", err)
		return
	}
	writeJSON(w, http.StatusOK, toOpenMonthDTO(state))
}

// =============================================================================
// CLOSE / REOPEN HANDLERS
// =============================================================================

// GetChecklist runs the advisory pre-close checks.
func (h *Handler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	checks, err := h.Manager.EvaluateChecklist(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to evaluate checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, toChecklistDTOs(checks))
}

// CloseMonth soft-closes the open month: snapshots, audit row, advance.
func (h *Handler) CloseMonth(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	var req CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Closer.Close(r.Context(), user, string(user), req.Notes, openmonth.Confirmations{
		TotalsReviewed:   req.TotalsReviewed,
		FinalLockConsent: req.FinalLockConsent,
	})
	if err != nil {
		handleDomainError(w, "Failed to close month", err)
		return
	}

	writeJSON(w, http.StatusOK, CloseResultDTO{
		ClosedPeriod:     result.ClosedPeriod.String(),
		NewPeriod:        result.NewPeriod.String(),
		AccountSnapshots: result.AccountSnapshots,
		Checklist:        toChecklistDTOs(result.Checklist),
	})
}

// CloseHistory returns the close audit log, oldest first.
func (h *Handler) CloseHistory(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	records, err := h.Store.CloseRecords(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load close history", err)
		return
	}

	dtos := make([]CloseRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = CloseRecordDTO{
			Period:   rec.Period.String(),
			ClosedAt: rec.ClosedAt.Format(time.RFC3339),
			ClosedBy: rec.ClosedBy,
			Notes:    rec.Notes,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReopenMonth moves the open month back to the previously closed one.
func (h *Handler) ReopenMonth(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	result, err := h.Reopener.Reopen(r.Context(), user, string(user))
	if err != nil {
		handleDomainError(w, "Failed to reopen month", err)
		return
	}
	writeJSON(w, http.StatusOK, ReopenResultDTO{
		ReopenedPeriod: result.ReopenedPeriod.String(),
		ReopenCount:    result.ReopenCount,
	})
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns month aggregates. Closed months serve the frozen
// snapshot; the open month is computed live from replay.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	ctx := r.Context()

	period, ok := h.resolvePeriod(w, r)
	if !ok {
		return
	}

	// A frozen snapshot wins when the month was closed.
	snap, err := h.Store.DashboardSnapshot(ctx, user, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard snapshot", err)
		return
	}
	if snap != nil && !snap.IsStale {
		writeJSON(w, http.StatusOK, DashboardDTO{
			Period:           period.String(),
			TotalSpent:       snap.TotalSpent.String(),
			TotalIncome:      snap.TotalIncome.String(),
			BeginningBalance: snap.BeginningBalance.String(),
			EndingBalance:    snap.EndingBalance.String(),
			NetWorth:         snap.NetWorth.String(),
			Frozen:           true,
		})
		return
	}

	totals, err := h.Store.PeriodTotals(ctx, user, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate totals", err)
		return
	}
	beginning, err := h.Engine.TotalAsOf(ctx, user, period.Start())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balances", err)
		return
	}
	ending, err := h.Engine.TotalAsOf(ctx, user, period.End())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balances", err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		Period:           period.String(),
		TotalSpent:       totals.Spent.String(),
		TotalIncome:      totals.Income.String(),
		BeginningBalance: beginning.String(),
		EndingBalance:    ending.String(),
		NetWorth:         ending.String(),
		Frozen:           false,
		Stale:            snap != nil && snap.IsStale,
	})
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

// ListRecurring returns the user's recurring templates.
func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	templates, err := h.Store.ListRecurringTemplates(r.Context(), user, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	dtos := make([]RecurringTemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toRecurringDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRecurring creates a monthly payment or deposit template.
func (h *Handler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	ctx := r.Context()

	var req CreateRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := ledger.EntryKind(req.Kind)
	if kind != ledger.KindPayment && kind != ledger.KindDeposit {
		writeError(w, http.StatusBadRequest, "Kind must be payment or deposit", nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}
	if req.DayOfMonth < 1 || req.DayOfMonth > 31 {
		writeError(w, http.StatusBadRequest, "day_of_month must be 1-31", nil)
		return
	}
	if _, err := h.Store.GetAccount(ctx, user, ledger.AccountID(req.AccountID)); err != nil {
		handleDomainError(w, "Failed to resolve account", err)
		return
	}

	nextRun, err := h.Manager.CurrentPeriod(ctx, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load open month", err)
		return
	}
	if req.NextRun != "" {
		nextRun, err = ledger.ParseYearMonth(req.NextRun)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid next_run format (use YYYY-MM)", err)
			return
		}
	}

	template := ledger.RecurringTemplate{
		ID:          uuid.NewString(),
		UserID:      user,
		Kind:        kind,
		AccountID:   ledger.AccountID(req.AccountID),
		Amount:      amount,
		Description: req.Description,
		DayOfMonth:  req.DayOfMonth,
		NextRun:     nextRun,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveRecurringTemplate(ctx, template); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringDTO(template))
}

// RunRecurring materializes every due template entry through today.
func (h *Handler) RunRecurring(w http.ResponseWriter, r *http.Request) {
	user := userID(r)

	today := ledger.DateOf(h.Manager.Clock())
	generated, err := h.Generator.GenerateThrough(r.Context(), user, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate entries", err)
		return
	}
	writeJSON(w, http.StatusOK, RunRecurringResponse{Generated: generated})
}

// =============================================================================
// HELPERS
// =============================================================================

// resolvePeriod reads the optional ?period=YYYY-MM query parameter,
// defaulting to the user's open month. Reports false after writing the
// error response.
func (h *Handler) resolvePeriod(w http.ResponseWriter, r *http.Request) (ledger.YearMonth, bool) {
	if s := r.URL.Query().Get("period"); s != "" {
		period, err := ledger.ParseYearMonth(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period format (use YYYY-MM)", err)
			return ledger.YearMonth{}, false
		}
		return period, true
	}
	period, err := h.Manager.CurrentPeriod(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load open month", err)
		return ledger.YearMonth{}, false
	}
	return period, true
}

func buildEntry(user ledger.UserID, req CreateEntryRequest) (ledger.Entry, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, errors.New("amount must be a decimal string")
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		return nil, errors.New("date must be YYYY-MM-DD")
	}
	id := ledger.EntryID(uuid.NewString())
	now := time.Now().UTC()

	switch ledger.EntryKind(req.Kind) {
	case ledger.KindPayment:
		if amount.Sign() <= 0 {
			return nil, errors.New("payment amount must be positive")
		}
		return ledger.Payment{
			ID: id, UserID: user, AccountID: ledger.AccountID(req.AccountID),
			Amount: amount, Date: date, Description: req.Description, CreatedAt: now,
		}, nil
	case ledger.KindDeposit:
		if amount.Sign() <= 0 {
			return nil, errors.New("deposit amount must be positive")
		}
		received := true
		if req.Received != nil {
			received = *req.Received
		}
		return ledger.Deposit{
			ID: id, UserID: user, AccountID: ledger.AccountID(req.AccountID),
			Amount: amount, Date: date, Received: received,
			Description: req.Description, CreatedAt: now,
		}, nil
	case ledger.KindTransfer:
		if amount.Sign() <= 0 {
			return nil, errors.New("transfer amount must be positive")
		}
		return ledger.Transfer{
			ID: id, UserID: user,
			FromAccountID: ledger.AccountID(req.FromAccount),
			ToAccountID:   ledger.AccountID(req.ToAccount),
			Amount:        amount, Date: date, Description: req.Description, CreatedAt: now,
		}, nil
	case ledger.KindAdjustment:
		if amount.IsZero() {
			return nil, errors.New("adjustment amount must be non-zero")
		}
		return ledger.Adjustment{
			ID: id, UserID: user, AccountID: ledger.AccountID(req.AccountID),
			Amount: amount, Date: date, Reason: req.Reason, CreatedAt: now,
		}, nil
	}
	return nil, errors.New("kind must be payment, deposit, transfer or adjustment")
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:               string(a.ID),
		Name:             a.Name,
		BeginningBalance: a.BeginningBalance.String(),
		CreatedOn:        a.CreatedOn.String(),
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:   string(e.EntryID()),
		Kind: string(e.Kind()),
		Date: e.EffectiveOn().String(),
	}
	switch v := e.(type) {
	case ledger.Payment:
		dto.AccountID = string(v.AccountID)
		dto.Amount = v.Amount.String()
		dto.Description = v.Description
	case ledger.Deposit:
		dto.AccountID = string(v.AccountID)
		dto.Amount = v.Amount.String()
		dto.Description = v.Description
		received := v.Received
		dto.Received = &received
	case ledger.Transfer:
		dto.FromAccount = string(v.FromAccountID)
		dto.ToAccount = string(v.ToAccountID)
		dto.Amount = v.Amount.String()
		dto.Description = v.Description
	case ledger.Adjustment:
		dto.AccountID = string(v.AccountID)
		dto.Amount = v.Amount.String()
		dto.Description = v.Reason
	}
	return dto
}

func toOpenMonthDTO(s ledger.OpenMonthState) OpenMonthDTO {
	dto := OpenMonthDTO{
		Period:        s.Period.String(),
		Label:         s.Period.Label(),
		HasData:       s.HasData,
		FirstDataFrom: s.FirstDataSource,
		ReopenCount:   s.ReopenCount,
	}
	if s.FirstDataAt != nil {
		dto.FirstDataAt = s.FirstDataAt.Format(time.RFC3339)
	}
	if s.LastReopenedAt != nil {
		dto.LastReopenedAt = s.LastReopenedAt.Format(time.RFC3339)
	}
	return dto
}

func toChecklistDTOs(checks []openmonth.CheckResult) []ChecklistItemDTO {
	dtos := make([]ChecklistItemDTO, len(checks))
	for i, c := range checks {
		dtos[i] = ChecklistItemDTO{Name: c.Name, Passed: c.Passed, Detail: c.Detail}
	}
	return dtos
}

func toRecurringDTO(t ledger.RecurringTemplate) RecurringTemplateDTO {
	return RecurringTemplateDTO{
		ID:          t.ID,
		Kind:        string(t.Kind),
		AccountID:   string(t.AccountID),
		Amount:      t.Amount.String(),
		Description: t.Description,
		DayOfMonth:  t.DayOfMonth,
		NextRun:     t.NextRun.String(),
		Active:      t.Active,
	}
}

// handleDomainError maps domain errors to HTTP statuses: missing records
// to 404, conflicts to 409, correctable requests to 400.
func handleDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
