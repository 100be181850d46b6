package reconcile

import (
	"reflect"
	"testing"

	"oracleScope/internal/model"
)

func statusesFromBits(bits []int) []model.SubmissionStatus {
	statuses := make([]model.SubmissionStatus, len(bits))
	for i, bit := range bits {
		if bit == 1 {
			statuses[i] = model.StatusSubmitted
		} else {
			statuses[i] = model.StatusMissed
		}
	}
	return statuses
}

func TestAnalyzeMissesTimeline(t *testing.T) {
	rows := AnalyzeMisses(statusesFromBits([]int{1, 1, 0, 0, 0, 1, 0}))

	consecutive := make([]int, len(rows))
	starts := make([]int, len(rows))
	grew := make([]int, len(rows))
	for i, row := range rows {
		consecutive[i] = row.Consecutive
		if row.StreakStart {
			starts[i] = 1
		}
		if row.StreakGrew {
			grew[i] = 1
		}
	}

	if want := []int{0, 0, 1, 2, 3, 0, 1}; !reflect.DeepEqual(consecutive, want) {
		t.Fatalf("consecutive counts = %v, want %v", consecutive, want)
	}
	if want := []int{0, 0, 1, 0, 0, 0, 1}; !reflect.DeepEqual(starts, want) {
		t.Fatalf("streak starts = %v, want %v", starts, want)
	}
	if want := []int{0, 0, 0, 1, 0, 0, 0}; !reflect.DeepEqual(grew, want) {
		t.Fatalf("streak-grew flags = %v, want %v", grew, want)
	}
}

func TestAnalyzeMissesInactiveResets(t *testing.T) {
	timeline := []model.SubmissionStatus{
		model.StatusMissed,
		model.StatusInactive,
		model.StatusMissed,
	}
	rows := AnalyzeMisses(timeline)
	if rows[0].Consecutive != 1 || rows[2].Consecutive != 1 {
		t.Fatalf("inactive row must break the streak: %+v", rows)
	}
	if !rows[2].StreakStart {
		t.Fatalf("miss after an inactive row starts a new instance")
	}
}

func TestSummarizeMisses(t *testing.T) {
	rows := AnalyzeMisses(statusesFromBits([]int{1, 1, 0, 0, 0, 1, 0}))
	summary := SummarizeMisses(rows)

	want := MissSummary{
		Missed:                       4,
		ConsecutiveMissed:            2,
		MaxConsecutive:               3,
		SeparateInstances:            2,
		SeparateConsecutiveInstances: 1,
	}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

func TestSummarizeMissesAllReporting(t *testing.T) {
	summary := SummarizeMisses(AnalyzeMisses(statusesFromBits([]int{1, 1, 1})))
	if summary != (MissSummary{}) {
		t.Fatalf("clean timeline must summarize to zero: %+v", summary)
	}
}

func TestStatusTimeline(t *testing.T) {
	records := []model.SubmissionRecord{
		{Answers: map[string]model.OperatorAnswer{"alpha": {Status: model.StatusSubmitted}}},
		{Answers: map[string]model.OperatorAnswer{"alpha": {Status: model.StatusMissed}}},
		{Answers: map[string]model.OperatorAnswer{}},
	}
	timeline := StatusTimeline(records, "alpha")
	want := []model.SubmissionStatus{model.StatusSubmitted, model.StatusMissed, model.StatusInactive}
	if !reflect.DeepEqual(timeline, want) {
		t.Fatalf("timeline = %v, want %v", timeline, want)
	}
}
