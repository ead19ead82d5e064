package dto

type SwipeRequest struct {
	TargetID int64  `json:"target_id"`
	Kind     string `json:"kind"`
}
