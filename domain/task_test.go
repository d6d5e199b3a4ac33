package domain

import "testing"

func TestNormalizeTimeDefaultsEmpty(t *testing.T) {
	if got := NormalizeTime(""); got != "00:00" {
		t.Fatalf("expected 00:00, got %q", got)
	}
	if got := NormalizeTime("08:30"); got != "08:30" {
		t.Fatalf("expected 08:30, got %q", got)
	}
}

func TestSortByTimeStable(t *testing.T) {
	tasks := []Task{
		{ID: "a", Time: "09:00"},
		{ID: "b", Time: "07:30"},
		{ID: "c", Time: "07:30"},
		{ID: "d", Time: "12:00"},
	}
	SortByTime(tasks)
	order := []string{"b", "c", "a", "d"}
	for i, id := range order {
		if tasks[i].ID != id {
			t.Fatalf("position %d: expected %s, got %#v", i, id, tasks)
		}
	}
}

func TestNormalizedDoesNotMutateInput(t *testing.T) {
	in := []Task{
		{ID: "late", Time: "23:00"},
		{ID: "none"},
	}
	out := Normalized(in)
	if in[1].Time != "" {
		t.Fatalf("input mutated: %#v", in)
	}
	if out[0].ID != "none" || out[0].Time != "00:00" {
		t.Fatalf("expected defaulted task first, got %#v", out)
	}
	if out[1].ID != "late" {
		t.Fatalf("unexpected order: %#v", out)
	}
}
