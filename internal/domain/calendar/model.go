package calendar

import (
	"context"
	"errors"
	"slices"
	"time"
)

// State keys for the persisted lists.
const (
	EventsKey = "calendarEvents"
	TasksKey  = "tasks"
)

// DateLayout is the layout of event and task dates.
const DateLayout = time.DateOnly

// TaskEventPrefix marks events derived from tasks.
const TaskEventPrefix = "task-"

const (
	CategoryActivity = "Activity"
	CategoryCampaign = "Campaign"
	CategoryEmail    = "Email"
	CategoryTask     = "Task"

	// CategoryAll matches every category when filtering.
	CategoryAll = "All"

	defaultColor = "#01818E"
)

var categoryColors = map[string]string{
	CategoryActivity: defaultColor,
	CategoryCampaign: defaultColor,
	CategoryEmail:    defaultColor,
	CategoryTask:     defaultColor,
}

// Categories lists the event categories in display order.
func Categories() []string {
	return []string{CategoryActivity, CategoryCampaign, CategoryEmail, CategoryTask}
}

// TaskStatus is the progress state of a task.
type TaskStatus string

const (
	StatusOnTrack   TaskStatus = "On Track"
	StatusPending   TaskStatus = "Pending"
	StatusOverdue   TaskStatus = "Overdue"
	StatusCompleted TaskStatus = "Completed"
)

var taskStatuses = []TaskStatus{StatusOnTrack, StatusPending, StatusOverdue, StatusCompleted}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return slices.Contains(taskStatuses, s)
}

var (
	ErrNotFound     = errors.New("calendar entry not found")
	ErrInvalidInput = errors.New("invalid calendar input")
)

// Event is a calendar entry.
type Event struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// EventInput describes an event to add or the new values of an existing one.
type EventInput struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	Category string `json:"category,omitempty"`
	Repeat   bool   `json:"repeat,omitempty"`
}

// Task is a dated to-do shown on the calendar.
type Task struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Date     string     `json:"date"`
	Status   TaskStatus `json:"status"`
	Category string     `json:"category,omitempty"`
}

// TaskInput describes a task to add.
type TaskInput struct {
	Title    string     `json:"title"`
	Date     string     `json:"date"`
	Status   TaskStatus `json:"status,omitempty"`
	Category string     `json:"category,omitempty"`
}

// StateRepository persists the JSON encoded lists.
type StateRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
