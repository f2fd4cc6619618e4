package entity

import (
	"mime/multipart"
)

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatDOCX     ExportFormat = "docx"
	FormatPDF      ExportFormat = "pdf"
)

func (f ExportFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

type CreateAgentRequest struct {
	UserID string
	Name   string
	Prompt string
	Files  []*multipart.FileHeader
}

type UpdateAgentRequest struct {
	UserID  string
	AgentID string
	Name    string
	Prompt  string
	Files   []*multipart.FileHeader
}

type AddFilesRequest struct {
	UserID  string
	AgentID string
	Files   []*multipart.FileHeader
}

type AgentSummary struct {
	ID            string `json:"agent_id"`
	Name          string `json:"name"`
	Prompt        string `json:"prompt"`
	DocumentCount int    `json:"document_count"`
}

type ListAgentsResponse struct {
	Agents []*AgentSummary `json:"agents"`
}

type DeleteAgentResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
