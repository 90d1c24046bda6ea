package tasks

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority matches s case-insensitively against the known priorities.
// Anything unrecognized falls back to PriorityMedium with ok=false.
func ParsePriority(s string) (p Priority, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return PriorityMedium, false
}

type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Priority  Priority `json:"priority"`
	Deadline  string   `json:"deadline"`
	Completed bool     `json:"completed"`
}

type TaskList struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tasks     []Task    `json:"tasks"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is a task as produced by a breakdown, before it has an id.
type Draft struct {
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
	Deadline string   `json:"deadline"`
}

type Summary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TaskCount      int    `json:"task_count"`
	CompletedCount int    `json:"completed_count"`
}

func (l *TaskList) clone() TaskList {
	out := *l
	out.Tasks = make([]Task, len(l.Tasks))
	copy(out.Tasks, l.Tasks)
	return out
}

func (l *TaskList) summary() Summary {
	s := Summary{ID: l.ID, Name: l.Name, TaskCount: len(l.Tasks)}
	for _, t := range l.Tasks {
		if t.Completed {
			s.CompletedCount++
		}
	}
	return s
}

func (l *TaskList) taskIndex(id string) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
