package domain

import "testing"

func TestBuildReportEmpty(t *testing.T) {
	r := BuildReport(nil)
	if r.Total != 0 || r.Completed != 0 || r.Pending != 0 || r.CompletionRate != 0 {
		t.Fatalf("expected zero report, got %#v", r)
	}
	if r.CompletedTasks == nil || r.PendingTasks == nil {
		t.Fatalf("expected empty slices, got %#v", r)
	}
}

func TestBuildReportRounding(t *testing.T) {
	tasks := []Task{
		{ID: "a", Completed: true},
		{ID: "b"},
		{ID: "c"},
	}
	r := BuildReport(tasks)
	if r.CompletionRate != 33 {
		t.Fatalf("expected rate 33, got %d", r.CompletionRate)
	}
	if r.Total != 3 || r.Completed != 1 || r.Pending != 2 {
		t.Fatalf("unexpected counts: %#v", r)
	}
}

func TestBuildReportAllDone(t *testing.T) {
	r := BuildReport([]Task{{ID: "a", Completed: true}})
	if r.CompletionRate != 100 || r.Completed != 1 || r.Pending != 0 {
		t.Fatalf("unexpected report: %#v", r)
	}
}

func TestBuildReportPartitionsSorted(t *testing.T) {
	tasks := []Task{
		{ID: "p2", Time: "15:00"},
		{ID: "c2", Time: "11:00", Completed: true},
		{ID: "p1", Time: "08:00"},
		{ID: "c1", Time: "09:00", Completed: true},
	}
	r := BuildReport(tasks)
	if len(r.CompletedTasks) != 2 || r.CompletedTasks[0].ID != "c1" || r.CompletedTasks[1].ID != "c2" {
		t.Fatalf("unexpected completed order: %#v", r.CompletedTasks)
	}
	if len(r.PendingTasks) != 2 || r.PendingTasks[0].ID != "p1" || r.PendingTasks[1].ID != "p2" {
		t.Fatalf("unexpected pending order: %#v", r.PendingTasks)
	}
}
