package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tqviet/extraq/pkg/api"
)

func schedulerStats(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		resp := api.SchedulerStatsResponse{
			Pending: rt.sc.Pending(),
			Size:    rt.sc.Size(),
			Paused:  rt.sc.Paused(),
		}

		if err := encode(w, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		Get("/api/v1/scheduler", handler)
}

func pauseScheduler(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		rt.logger.Info("pausing scheduler")

		rt.sc.Pause()

		w.WriteHeader(http.StatusOK)
	}

	sm.
		Put("/api/v1/scheduler_pause", handler)
}

func resumeScheduler(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		rt.logger.Info("resuming scheduler")

		rt.sc.Resume()

		w.WriteHeader(http.StatusOK)
	}

	sm.
		Put("/api/v1/scheduler_resume", handler)
}

func clearScheduler(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		rt.logger.Info("clearing scheduler queue")

		rt.sc.Clear()

		w.WriteHeader(http.StatusOK)
	}

	sm.
		Put("/api/v1/scheduler_clear", handler)
}
