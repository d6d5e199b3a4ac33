package domain

import "sort"

// DefaultTime substitutes an absent time-of-day for sorting and display.
const DefaultTime = "00:00"

// Task represents a single entry in a user's day.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Time      string `json:"time"`
	Completed bool   `json:"completed"`
	OwnerID   string `json:"ownerId"`
	Day       string `json:"day"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// NormalizeTime returns the HH:MM value used for ordering, defaulting
// empty values to DefaultTime. The stored record is never rewritten.
func NormalizeTime(t string) string {
	if t == "" {
		return DefaultTime
	}
	return t
}

// SortByTime orders tasks ascending by normalized time. The sort is
// stable: tasks sharing a time keep their incoming order.
func SortByTime(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return NormalizeTime(tasks[i].Time) < NormalizeTime(tasks[j].Time)
	})
}

// Normalized returns a copy of tasks with times defaulted and the copy
// sorted by time. The input slice is left untouched.
func Normalized(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		out[i].Time = NormalizeTime(out[i].Time)
	}
	SortByTime(out)
	return out
}
