package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hearth/internal/core"
	applog "hearth/internal/log"
	"hearth/internal/tasks"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain failures onto HTTP statuses. Validation
// failures surface their message; infrastructure details stay in the logs.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *core.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": validation.Message,
			"field": validation.Field,
		})
		return
	}

	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}

	slog.ErrorContext(r.Context(), "Request failed",
		applog.FieldError, err,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseTaskFilters reads task query parameters. Unparseable bounds are
// ignored, mirroring the lenient bound handling of report queries.
func parseTaskFilters(r *http.Request) tasks.Filters {
	q := r.URL.Query()
	f := tasks.Filters{
		MemberID: strings.TrimSpace(q.Get("memberId")),
		Status:   strings.TrimSpace(q.Get("status")),
	}
	if t, ok := parseBound(q.Get("from")); ok {
		f.From = t
	}
	if t, ok := parseBound(q.Get("to")); ok {
		f.To = t
	}
	return f
}

func parseBound(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	t, err := core.ParseTimestamp(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// splitList splits a comma-separated query value, dropping empty elements.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
