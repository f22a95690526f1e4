package dto

type AskRequest struct {
	SessionId  string `json:"session_id" validate:"omitempty,max=128"`
	DocumentId string `json:"document_id" validate:"required,uuid"`
	Message    string `json:"message" validate:"required,max=4000"`
}

type SourceDTO struct {
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

type AskResponse struct {
	SessionId string      `json:"session_id"`
	Answer    string      `json:"answer"`
	Sources   []SourceDTO `json:"sources"`
}
