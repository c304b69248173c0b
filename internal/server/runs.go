package server

import (
	"errors"
	"net/http"

	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"

	errs "github.com/tqviet/extraq/internal/errors"
	"github.com/tqviet/extraq/internal/runs"
	"github.com/tqviet/extraq/internal/utils"
	"github.com/tqviet/extraq/pkg/api"
)

func startRun(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req api.StartRunRequest

		if err := decode(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if len(req.Importer) == 0 {
			http.Error(w, "importer is required", http.StatusBadRequest)
			return
		}

		id, err := rt.rn.Start(req.Importer)
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := api.StartRunResponse{
			RunId: id,
		}

		if err := respond(w, http.StatusCreated, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		Post("/api/v1/runs", handler)
}

func getRun(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		req := r.
			Context().
			Value(httpin.Input).(*api.GetRunRequest)

		info, err := rt.st.GetRun(req.RunId)
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := api.GetRunResponse(runInfoOf(info))

		if err := encode(w, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		With(httpin.NewInput(api.GetRunRequest{})).
		Get("/api/v1/runs/{runId}", handler)
}

func listRuns(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		req := r.
			Context().
			Value(httpin.Input).(*api.ListRunsRequest)

		skip, limit := utils.ToSkipAndLimit(req.Page, req.Size)

		list, err := rt.st.ListRuns(skip, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := api.ListRunsResponse{
			Runs: make([]api.RunInfo, 0, len(list)),
		}
		for i := range list {
			resp.Runs = append(resp.Runs, runInfoOf(&list[i]))
		}

		if err := respond(w, http.StatusOK, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		With(httpin.NewInput(api.ListRunsRequest{})).
		Get("/api/v1/runs", handler)
}

func listImporters(sm chi.Router, rt *runtime) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		resp := api.ListImportersResponse{
			Importers: rt.rn.Importers(),
		}

		if err := encode(w, resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	sm.
		Get("/api/v1/importers", handler)
}

func runInfoOf(info *runs.RunInfo) api.RunInfo {
	failures := make([]api.RunFailure, 0, len(info.Failures))
	for _, f := range info.Failures {
		failures = append(failures, api.RunFailure{
			RecordId: f.RecordID,
			Reason:   f.Reason,
		})
	}

	return api.RunInfo{
		RunId:       info.ID,
		Importer:    info.Importer,
		Status:      string(info.Status),
		StartedAt:   info.StartedAt,
		CompletedAt: info.CompletedAt,
		Estimated:   info.Estimated,
		Attempted:   info.Attempted,
		Succeeded:   info.Succeeded,
		Failed:      info.Failed,
		Reason:      info.Reason,
		Failures:    failures,
	}
}
