// internal/api/notifications.go
package api

import (
	"net/http"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/validation"
	"notification-queue/internal/models"
)

func (s *Server) createNotifications(w http.ResponseWriter, r *http.Request) {
	var batch models.NotificationBatch
	if err := decode(r, &batch); err != nil {
		s.fail(w, r, err)
		return
	}
	if res := validation.ValidateStruct(batch); !res.Valid {
		s.fail(w, r, errors.NewInvalidRequestError(res.Error()))
		return
	}

	res, err := s.planner.CreateNotifications(r.Context(), batch)
	if err != nil {
		s.fail(w, r, errors.NewQueryExecutionFailedError("create notifications", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
