package job

import (
	"errors"
	"net/http"

	"github.com/shop24h/shop24h/internal/api"
	"github.com/shop24h/shop24h/internal/errorutil"
	"github.com/shop24h/shop24h/internal/timeutil"
)

// Server exposes the management endpoint for scheduled jobs.
type Server struct {
	scheduler *Scheduler
}

func NewServer(scheduler *Scheduler) Server {
	return Server{scheduler: scheduler}
}

func (s Server) Register(mux *http.ServeMux) {
	mux.Handle("POST /admin/jobs", s.createHandler())
}

func (s Server) createHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobType        string             `json:"jobType"`
			ScheduleTime   *timeutil.DateTime `json:"scheduleTime"`
			RepeatInterval *RepeatInterval    `json:"repeatInterval"`
			ReferenceID    string             `json:"referenceId"`
		}
		if err := api.ParseJSON(r, &req); err != nil {
			api.WriteError(w, api.NewError("INVALID_BODY", http.StatusBadRequest, "could not parse request body"))
			return
		}

		var j *Job
		var err error
		if req.RepeatInterval != nil {
			j, err = s.scheduler.CreateRecurring(r.Context(), req.JobType, req.RepeatInterval, req.ReferenceID)
		} else if req.ScheduleTime != nil {
			j, err = s.scheduler.CreateOneTime(r.Context(), req.JobType, *req.ScheduleTime, req.ReferenceID)
		} else {
			err = errorutil.Format("%w: scheduleTime or repeatInterval is required", ErrMissingField)
		}
		if err != nil {
			api.WriteError(w, writeableError(err))
			return
		}

		api.WriteJSON(w, struct {
			Message string `json:"message"`
			Data    *Job   `json:"data"`
		}{"job created", j}, http.StatusCreated)
	})
}

func writeableError(err error) error {
	switch {
	case errors.Is(err, ErrMissingField):
		return api.NewError("MISSING_FIELD", http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidRecurrence):
		return api.NewError("INVALID_RECURRENCE", http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
