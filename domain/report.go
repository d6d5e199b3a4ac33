package domain

import "math"

// Report is the aggregate view derived from one day's task set. It has no
// lifecycle of its own: it is recomputed from scratch on every change.
type Report struct {
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Pending        int    `json:"pending"`
	CompletionRate int    `json:"completionRate"`
	CompletedTasks []Task `json:"completedTasks"`
	PendingTasks   []Task `json:"pendingTasks"`
}

// BuildReport derives the aggregate view from the given tasks. The rate is
// an integer percent, round(completed/total*100), zero for an empty set.
// Both subsets are stably sorted by normalized time ascending.
func BuildReport(tasks []Task) Report {
	r := Report{
		CompletedTasks: []Task{},
		PendingTasks:   []Task{},
	}
	for _, t := range tasks {
		if t.Completed {
			r.CompletedTasks = append(r.CompletedTasks, t)
		} else {
			r.PendingTasks = append(r.PendingTasks, t)
		}
	}
	SortByTime(r.CompletedTasks)
	SortByTime(r.PendingTasks)
	r.Total = len(tasks)
	r.Completed = len(r.CompletedTasks)
	r.Pending = len(r.PendingTasks)
	if r.Total > 0 {
		r.CompletionRate = int(math.Round(float64(r.Completed) / float64(r.Total) * 100))
	}
	return r
}
