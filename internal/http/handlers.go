package http

import (
	"net/http"
	"strings"

	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/store"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Dashboard(r.Context()))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.svc.Transactions(r.Context())
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.svc.AddTransaction(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		JSON(tx).
		Write(w)
}

// handleUpdateTransaction replaces a transaction. An omitted timestamp keeps
// the stored one.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	ts := in.Timestamp
	if ts.IsZero() {
		existing, ok := s.findTransaction(r, id)
		if !ok {
			writeError(w, r, log.OpUpdate, store.ErrNotFound)
			return
		}
		ts = existing.Timestamp
	}

	tx, err := s.svc.UpdateTransaction(r.Context(), core.Transaction{
		ID:        id,
		Title:     in.Title,
		Amount:    in.Amount,
		Category:  in.Category,
		Kind:      in.Kind,
		Timestamp: ts,
	})
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) findTransaction(r *http.Request, id string) (core.Transaction, bool) {
	for _, tx := range s.svc.Transactions(r.Context()) {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDaySummary(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query(), s.svc.Location(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.DailySummary(r.Context(), day))
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	params, err := parseMonthParams(r.URL.Query(), s.now().In(s.svc.Location()))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.MonthSummary(r.Context(), params.Year, params.Month))
}

type budgetResponse struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

func (s *Server) budgetBody(r *http.Request) budgetResponse {
	amount := s.svc.Budget(r.Context())
	code := s.svc.Currency(r.Context())
	return budgetResponse{
		Amount:    amount.StringFixed(2),
		Currency:  code,
		Formatted: core.FormatCurrency(code, amount),
	}
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budgetBody(r))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.UpdateBudget(r.Context(), req.Amount); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, s.budgetBody(r))
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"currency":  s.svc.Currency(r.Context()),
		"supported": core.SupportedCurrencies,
	})
}

func (s *Server) handleUpdateCurrency(w http.ResponseWriter, r *http.Request) {
	var req CurrencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.SetCurrency(r.Context(), req.Currency); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"currency": s.svc.Currency(r.Context())})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": core.DefaultCategories})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.svc.CurrentAlert()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	s.svc.DismissAlert()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Backup(r.Context())
	if err != nil {
		writeError(w, r, log.OpBackup, err)
		return
	}
	NewResponse().
		Header("Content-Disposition", `attachment; filename="wallet-backup-`+snap.CreatedAt.Format("20060102-150405")+`.json"`).
		JSON(snap).
		Write(w)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var snap store.Snapshot
	if err := decodeJSON(w, r, &snap); err != nil {
		writeError(w, r, log.OpRestore, err)
		return
	}
	if err := s.svc.Restore(r.Context(), snap); err != nil {
		writeError(w, r, log.OpRestore, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"restored": len(snap.Transactions)})
}
