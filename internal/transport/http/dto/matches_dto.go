package dto

type UnmatchRequest struct {
	TargetID int64 `json:"target_id"`
}

type BlockRequest struct {
	TargetID int64 `json:"target_id"`
}

type ReportRequest struct {
	TargetID int64  `json:"target_id"`
	Reason   string `json:"reason"`
	Details  string `json:"details"`
}
