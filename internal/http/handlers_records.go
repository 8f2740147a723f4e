package http

import (
	"context"
	"log/slog"
	"net/http"

	"hearth/internal/amqp"
	"hearth/internal/core"
	applog "hearth/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := core.ExpenseFromRequest(in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.store.CreateExpense(r.Context(), expense)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.afterRecordWrite(r.Context(), amqp.KindExpense, saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.store.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var in core.IncomeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	income, err := core.IncomeFromRequest(in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.store.CreateIncome(r.Context(), income)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.afterRecordWrite(r.Context(), amqp.KindIncome, saved.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	income, err := s.store.GetIncome(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

// afterRecordWrite invalidates cached reports and publishes a record event.
// Publishing is best-effort: the record is already durable.
func (s *Server) afterRecordWrite(ctx context.Context, kind, id string) {
	s.reports.Invalidate()

	if s.publisher == nil {
		return
	}
	msg := amqp.NewRecordEvent(kind, amqp.ActionCreated, id)
	if err := s.publisher.PublishRecordEvent(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to publish record event",
			applog.FieldError, err,
			applog.FieldRecordKind, kind,
			applog.FieldRecordID, id)
	}
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := s.converter.Currencies()
	rates := make(map[string]string, len(codes))
	for _, code := range codes {
		rates[code] = s.converter.Rate(code).String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"native":     core.NativeCurrency,
		"currencies": codes,
		"rates":      rates,
	})
}
