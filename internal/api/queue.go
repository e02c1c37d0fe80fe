// internal/api/queue.go
package api

import (
	stderrors "errors"
	"net/http"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/validation"
	"notification-queue/internal/dispatch"
	"notification-queue/internal/lifecycle"
	"notification-queue/internal/models"
	"notification-queue/internal/queue"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listQueue(w http.ResponseWriter, r *http.Request) {
	f, err := parseQueueFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.queue.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("list queue records", err))
		return
	}
	if list == nil {
		list = []models.QueueEmail{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) countQueue(w http.ResponseWriter, r *http.Request) {
	f, err := parseQueueFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.queue.Count(r.Context(), f)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("count queue records", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) searchQueue(w http.ResponseWriter, r *http.Request) {
	p := &queryParser{values: r.URL.Query()}
	q, page := p.str("_q"), p.page()
	if err := p.err(); err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.queue.Search(r.Context(), q, page)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("search queue records", err))
		return
	}
	if list == nil {
		list = []models.QueueEmail{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.queue.Get(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, queue.ErrNotFound) {
			s.fail(w, r, errors.NewQueueRecordNotFoundError(id))
			return
		}
		s.fail(w, r, errors.NewQueryExecutionFailedError("get queue record", err))
		return
	}
	if partnerID, ok := r.URL.Query()["partnerId"]; ok && rec.PartnerID != partnerID[0] {
		s.fail(w, r, errors.NewQueueRecordNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req dispatch.GenerateRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if res := validation.ValidateStruct(req); !res.Valid {
		s.fail(w, r, errors.NewInvalidRequestError(res.Error()))
		return
	}

	res, err := s.planner.Generate(r.Context(), req)
	if err != nil && (res == nil || !res.Written()) {
		s.fail(w, r, errors.NewDatabaseInsertFailedError(err))
		return
	}
	if err != nil {
		s.logger.Warn("Some queue records could not be stored", map[string]interface{}{
			"key":    req.Key,
			"failed": res.Failed,
			"error":  err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.CancelRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.lifecycle.Cancel(r.Context(), req)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("cancel", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"affected": n})
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.CleanupRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.lifecycle.Cleanup(r.Context(), req)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("cleanup", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// reprocess answers 204 when the record does not exist.
func (s *Server) reprocess(w http.ResponseWriter, r *http.Request) {
	var req lifecycle.ReprocessRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.ID = chi.URLParam(r, "id")

	rec, err := s.lifecycle.Reprocess(r.Context(), req)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("reprocess", err))
		return
	}
	if rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
