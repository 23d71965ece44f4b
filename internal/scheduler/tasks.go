package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadSLAEscalate = "leads.sla.escalate"

// LeadSLAEscalatePayload identifies a lead the sweep flagged for automatic
// escalation. The worker re-checks eligibility before acting: the lead may
// have been resolved between enqueue and execution.
type LeadSLAEscalatePayload struct {
	LeadID string `json:"leadId"`
	Code   string `json:"code"`
}

func NewLeadSLAEscalateTask(payload LeadSLAEscalatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadSLAEscalate, data), nil
}

func ParseLeadSLAEscalatePayload(task *asynq.Task) (LeadSLAEscalatePayload, error) {
	var payload LeadSLAEscalatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadSLAEscalatePayload{}, err
	}
	return payload, nil
}
