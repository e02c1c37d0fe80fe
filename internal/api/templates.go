// internal/api/templates.go
package api

import (
	"net/http"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/validation"
	"notification-queue/internal/models"
)

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	f, err := parseTemplateFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.templates.FetchAll(r.Context(), f)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("list templates", err))
		return
	}
	if list == nil {
		list = []models.NotificationTemplate{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) countTemplates(w http.ResponseWriter, r *http.Request) {
	f, err := parseTemplateFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.templates.Count(r.Context(), f)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("count templates", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.NotificationTemplate
	if err := decode(r, &t); err != nil {
		s.fail(w, r, err)
		return
	}
	if res := validation.ValidateStruct(t); !res.Valid {
		s.fail(w, r, errors.NewInvalidRequestError(res.Error()))
		return
	}
	t.Channel = t.Channel.Normalize()

	if err := s.templates.Save(r.Context(), &t); err != nil {
		s.fail(w, r, errors.NewDatabaseInsertFailedError(err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}
