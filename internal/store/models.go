package store

import "time"

// Decision records how one chat request was routed and answered.
type Decision struct {
	ID               uint   `gorm:"primaryKey"`
	RequestID        string `gorm:"size:64;uniqueIndex"`
	RequestedAgent   string `gorm:"size:32;index"`
	AgentUsed        string `gorm:"size:64;index"`
	Label            string `gorm:"size:32;index"`
	Rule             string `gorm:"size:64"`
	Keyword          string `gorm:"size:64"`
	Message          string `gorm:"type:text"`
	Reasoning        string `gorm:"type:text"`
	ResponseLength   int
	ProcessingTimeMs int64
	Failed           bool      `gorm:"index"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

// DecisionCount is one row of an aggregated decision breakdown.
type DecisionCount struct {
	Key   string `gorm:"column:bucket" json:"key"`
	Total int64  `gorm:"column:total" json:"total"`
}

// DecisionStats summarizes the decision log.
type DecisionStats struct {
	Total   int64           `json:"total"`
	Failed  int64           `json:"failed"`
	ByLabel []DecisionCount `json:"by_label"`
	ByAgent []DecisionCount `json:"by_agent"`
	ByRule  []DecisionCount `json:"by_rule"`
}
