// Package reconcile turns the reconstructed submission and payment tables
// into per-epoch, per-operator earnings reconciliation totals.
package reconcile

import (
	"oracleScope/internal/model"
)

// MissRow is the per-row output of the missed-observation state machine.
type MissRow struct {
	// Consecutive is the length of the miss streak ending at this row;
	// 0 on rows where the operator reported or was inactive.
	Consecutive int
	// StreakStart marks a miss not immediately preceded by a miss.
	StreakStart bool
	// StreakGrew marks the row where a streak first reaches length two.
	StreakGrew bool
}

// MissSummary aggregates a row-level timeline for one operator.
type MissSummary struct {
	Missed                       int
	ConsecutiveMissed            int
	MaxConsecutive               int
	SeparateInstances            int
	SeparateConsecutiveInstances int
}

// AnalyzeMisses runs the reporting/missing state machine over a time-ordered
// status timeline. Inactive rows reset the streak the same way a submission
// does; an operator outside the transmitter set is not accumulating misses.
func AnalyzeMisses(timeline []model.SubmissionStatus) []MissRow {
	rows := make([]MissRow, len(timeline))
	streak := 0
	for i, status := range timeline {
		if status != model.StatusMissed {
			streak = 0
			continue
		}
		streak++
		rows[i] = MissRow{
			Consecutive: streak,
			StreakStart: streak == 1,
			StreakGrew:  streak == 2,
		}
	}
	return rows
}

// SummarizeMisses reduces a row timeline to epoch-level aggregates. A row
// counts toward ConsecutiveMissed only when it extends a streak, so a lone
// miss contributes to Missed but not to ConsecutiveMissed.
func SummarizeMisses(rows []MissRow) MissSummary {
	var summary MissSummary
	for _, row := range rows {
		if row.Consecutive > 0 {
			summary.Missed++
		}
		if row.Consecutive >= 2 {
			summary.ConsecutiveMissed++
		}
		if row.Consecutive > summary.MaxConsecutive {
			summary.MaxConsecutive = row.Consecutive
		}
		if row.StreakStart {
			summary.SeparateInstances++
		}
		if row.StreakGrew {
			summary.SeparateConsecutiveInstances++
		}
	}
	return summary
}

// StatusTimeline extracts one operator's status column from the ordered
// submission table.
func StatusTimeline(records []model.SubmissionRecord, operator string) []model.SubmissionStatus {
	timeline := make([]model.SubmissionStatus, len(records))
	for i, record := range records {
		answer, ok := record.Answers[operator]
		if !ok {
			timeline[i] = model.StatusInactive
			continue
		}
		timeline[i] = answer.Status
	}
	return timeline
}
