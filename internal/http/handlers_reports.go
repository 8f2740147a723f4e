package http

import (
	"net/http"

	"hearth/internal/core"
)

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := core.NewReportQueryBuilder().
		SetPeriod(params.Get("period")).
		SetFrom(params.Get("from")).
		SetTo(params.Get("to")).
		SetGroupBy(params.Get("groupBy")).
		SetCurrency(params.Get("currency")).
		Build()

	summary, err := s.reports.Summary(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := core.NewMetricsQueryBuilder().
		SetMemberIDs(splitList(params.Get("memberIds"))).
		SetGranularity(params.Get("granularity")).
		SetMetrics(splitList(params.Get("metrics"))).
		SetFrom(params.Get("from")).
		SetTo(params.Get("to")).
		Build()

	report, err := s.reports.Metrics(r.Context(), q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
