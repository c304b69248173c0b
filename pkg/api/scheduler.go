package api

type SchedulerStatsResponse struct {
	Pending int  `json:"pending"`
	Size    int  `json:"size"`
	Paused  bool `json:"paused"`
}
