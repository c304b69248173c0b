package api

import "time"

type StartRunRequest struct {
	Importer string `json:"importer"`
}

type StartRunResponse struct {
	RunId string `json:"runId"`
}

type GetRunRequest struct {
	RunId string `in:"path=runId"`
}

type RunFailure struct {
	RecordId string `json:"recordId"`
	Reason   string `json:"reason"`
}

type RunInfo struct {
	RunId       string       `json:"runId"`
	Importer    string       `json:"importer"`
	Status      string       `json:"status"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`
	Estimated   int          `json:"estimated"`
	Attempted   int          `json:"attempted"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Reason      string       `json:"reason,omitempty"`
	Failures    []RunFailure `json:"failures,omitempty"`
}

type GetRunResponse RunInfo

type ListRunsRequest struct {
	Page uint64 `in:"query=page"`
	Size uint64 `in:"query=size"`
}

type ListRunsResponse struct {
	Runs []RunInfo `json:"runs"`
}

type ListImportersResponse struct {
	Importers []string `json:"importers"`
}
