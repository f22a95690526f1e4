package dto

import "time"

type ListLogsRequest struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type LogListResponse struct {
	Id        string    `json:"id"` // MD5 hash of the line, not a UUID
	Level     string    `json:"level"`
	Module    string    `json:"module"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type LogDetailResponse struct {
	LogListResponse
	Details map[string]interface{} `json:"details"`
}
