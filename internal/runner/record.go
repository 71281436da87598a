package runner

import (
	"encoding/json"

	"autoskip/internal/storage"
)

// Record stores the decisions of plan in the session history
func Record(history *storage.HistoryRepository, plan *Plan) error {
	s := &storage.SessionRecord{
		ID:             plan.SessionID,
		StartedAt:      plan.StartedAt,
		BaseRef:        plan.Base,
		SafeMode:       plan.SafeMode,
		Enabled:        plan.Enabled,
		DisabledReason: plan.DisabledReason,
		Total:          plan.Summary.Total,
		Run:            plan.Summary.Run,
		Skipped:        plan.Summary.Skipped,
		Decisions:      make([]storage.DecisionRecord, 0, len(plan.Tests)),
	}
	if plan.Stats != nil {
		data, err := json.Marshal(plan.Stats)
		if err != nil {
			return err
		}
		s.StatsJSON = string(data)
	}
	for _, t := range plan.Tests {
		s.Decisions = append(s.Decisions, storage.DecisionRecord{
			Path:    t.Path,
			Module:  t.Module,
			Run:     t.Run,
			Reason:  string(t.Reason),
			Trigger: t.Trigger,
		})
	}
	return history.RecordSession(s)
}
