package dto

type IssueSessionRequest struct {
	UserID int64 `json:"user_id"`
}
