package http

import (
	"net/http"

	"hearth/internal/tasks"
)

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tasks.TasksByMember(r.Context(), parseTaskFilters(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []tasks.Task{} // never serialize null
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tasks.TaskStats(r.Context(), parseTaskFilters(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
