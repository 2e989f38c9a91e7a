package api

import (
	"strings"
	"time"

	"devduck/backend/internal/store"
)

// ChatRequest is the body of POST /chat. Message is a pointer so that an
// explicit empty string is accepted while a missing field is not.
type ChatRequest struct {
	Message *string `json:"message" binding:"required"`
	Agent   string  `json:"agent"`
}

// ChatResponse is the reply triple returned by POST /chat.
type ChatResponse struct {
	Response  string  `json:"response"`
	AgentUsed string  `json:"agent_used"`
	Reasoning *string `json:"reasoning"`
}

// DecisionDTO is the API representation for a logged routing decision.
type DecisionDTO struct {
	ID               uint      `json:"id"`
	RequestID        string    `json:"request_id"`
	RequestedAgent   string    `json:"requested_agent"`
	AgentUsed        string    `json:"agent_used"`
	Label            string    `json:"label,omitempty"`
	Rule             string    `json:"rule,omitempty"`
	Keyword          string    `json:"keyword,omitempty"`
	Message          string    `json:"message"`
	Reasoning        string    `json:"reasoning,omitempty"`
	ResponseLength   int       `json:"response_length"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Failed           bool      `json:"failed"`
	CreatedAt        time.Time `json:"created_at"`
}

// DecisionsResponse lists recent decisions.
type DecisionsResponse struct {
	Items []DecisionDTO `json:"items"`
	Total int64         `json:"total"`
}

// DecisionFromModel converts a store.Decision into the DTO representation.
func DecisionFromModel(d store.Decision) DecisionDTO {
	return DecisionDTO{
		ID:               d.ID,
		RequestID:        d.RequestID,
		RequestedAgent:   d.RequestedAgent,
		AgentUsed:        d.AgentUsed,
		Label:            d.Label,
		Rule:             d.Rule,
		Keyword:          d.Keyword,
		Message:          d.Message,
		Reasoning:        strings.TrimSpace(d.Reasoning),
		ResponseLength:   d.ResponseLength,
		ProcessingTimeMs: d.ProcessingTimeMs,
		Failed:           d.Failed,
		CreatedAt:        d.CreatedAt,
	}
}
