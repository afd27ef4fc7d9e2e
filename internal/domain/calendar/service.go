// Package calendar keeps the dashboard's calendar events and tasks in local state.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/leadboard/internal/repository"
)

const repeatWeeks = 4

// Service manages events and tasks. Every task change re-derives the
// task events in the event list.
type Service struct {
	state  StateRepository
	logger *slog.Logger
	newID  func() string

	mu sync.Mutex
}

// Option configures the service.
type Option func(*Service)

// WithIDGenerator overrides event and task id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a calendar service.
func NewService(state StateRepository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		state:  state,
		logger: logger,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns all events.
func (s *Service) Events(ctx context.Context) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadEvents(ctx)
}

// FilterEvents returns events in category whose title contains search,
// ignoring case. Category "All" or "" matches every category.
func (s *Service) FilterEvents(ctx context.Context, category, search string) []Event {
	return FilterEvents(s.Events(ctx), category, search)
}

// FilterEvents filters events by category and case-insensitive title search.
func FilterEvents(events []Event, category, search string) []Event {
	needle := strings.ToLower(search)
	out := []Event{}
	for _, e := range events {
		if category != "" && category != CategoryAll && e.Category != category {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Title), needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// AddEvent adds an event, or four weekly occurrences when in.Repeat is set.
func (s *Service) AddEvent(ctx context.Context, in EventInput) ([]Event, error) {
	category, start, err := validateEvent(in)
	if err != nil {
		return nil, err
	}

	base := Event{
		Title:    strings.TrimSpace(in.Title),
		Category: category,
		Color:    categoryColors[category],
	}
	id := s.newID()

	var added []Event
	if in.Repeat {
		for i := range repeatWeeks {
			e := base
			e.ID = fmt.Sprintf("%s-%d", id, i)
			e.Start = start.AddDate(0, 0, 7*i).Format(DateLayout)
			added = append(added, e)
		}
	} else {
		e := base
		e.ID = id
		e.Start = start.Format(DateLayout)
		added = append(added, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	events := append(s.loadEvents(ctx), added...)
	if err := s.save(ctx, EventsKey, events); err != nil {
		return nil, err
	}
	return added, nil
}

// UpdateEvent replaces the title, date and category of an event.
func (s *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error) {
	category, start, err := validateEvent(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.loadEvents(ctx)
	idx := slices.IndexFunc(events, func(e Event) bool { return e.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: event %q", ErrNotFound, id)
	}
	events[idx].Title = strings.TrimSpace(in.Title)
	events[idx].Start = start.Format(DateLayout)
	events[idx].Category = category
	events[idx].Color = categoryColors[category]
	if err := s.save(ctx, EventsKey, events); err != nil {
		return nil, err
	}
	updated := events[idx]
	return &updated, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.loadEvents(ctx)
	kept := slices.DeleteFunc(slices.Clone(events), func(e Event) bool { return e.ID == id })
	if len(kept) == len(events) {
		return fmt.Errorf("%w: event %q", ErrNotFound, id)
	}
	return s.save(ctx, EventsKey, kept)
}

// Tasks returns all tasks.
func (s *Service) Tasks(ctx context.Context) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTasks(ctx)
}

// TasksByStatus groups tasks by status. Every status has an entry.
func (s *Service) TasksByStatus(ctx context.Context) map[TaskStatus][]Task {
	out := make(map[TaskStatus][]Task, len(taskStatuses))
	for _, st := range taskStatuses {
		out[st] = []Task{}
	}
	for _, t := range s.Tasks(ctx) {
		out[t.Status] = append(out[t.Status], t)
	}
	return out
}

// AddTask adds a task. Status defaults to Pending.
func (s *Service) AddTask(ctx context.Context, in TaskInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	task := Task{
		ID:       s.newID(),
		Title:    title,
		Date:     date.Format(DateLayout),
		Status:   status,
		Category: strings.TrimSpace(in.Category),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := append(s.loadTasks(ctx), task)
	if err := s.saveTasks(ctx, tasks); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskStatus changes the status of a task.
func (s *Service) SetTaskStatus(ctx context.Context, id string, status TaskStatus) (*Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.loadTasks(ctx)
	idx := slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("%w: task %q", ErrNotFound, id)
	}
	tasks[idx].Status = status
	if err := s.saveTasks(ctx, tasks); err != nil {
		return nil, err
	}
	updated := tasks[idx]
	return &updated, nil
}

// DeleteTask removes a task and its calendar event.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.loadTasks(ctx)
	kept := slices.DeleteFunc(slices.Clone(tasks), func(t Task) bool { return t.ID == id })
	if len(kept) == len(tasks) {
		return fmt.Errorf("%w: task %q", ErrNotFound, id)
	}
	return s.saveTasks(ctx, kept)
}

// saveTasks re-derives the task events and persists them before the tasks,
// putting the old events back if the tasks cannot be saved. Caller holds mu.
func (s *Service) saveTasks(ctx context.Context, tasks []Task) error {
	events := s.loadEvents(ctx)
	if err := s.save(ctx, EventsKey, syncTaskEvents(events, tasks)); err != nil {
		return err
	}
	if err := s.save(ctx, TasksKey, tasks); err != nil {
		if restoreErr := s.save(ctx, EventsKey, events); restoreErr != nil {
			s.logger.Warn("restoring task events failed", "error", restoreErr)
		}
		return err
	}
	return nil
}

// syncTaskEvents drops all task events and appends one per task, skipping
// ids already taken by a regular event.
func syncTaskEvents(events []Event, tasks []Task) []Event {
	out := make([]Event, 0, len(events)+len(tasks))
	taken := make(map[string]bool, len(events))
	for _, e := range events {
		if strings.HasPrefix(e.ID, TaskEventPrefix) {
			continue
		}
		out = append(out, e)
		taken[e.ID] = true
	}
	for _, t := range tasks {
		id := TaskEventPrefix + t.ID
		if taken[id] {
			continue
		}
		out = append(out, Event{
			ID:       id,
			Title:    t.Title,
			Start:    t.Date,
			Category: CategoryTask,
			Color:    categoryColors[CategoryTask],
		})
	}
	return out
}

func (s *Service) loadEvents(ctx context.Context) []Event {
	return loadList[Event](ctx, s, EventsKey)
}

func (s *Service) loadTasks(ctx context.Context) []Task {
	return loadList[Task](ctx, s, TasksKey)
}

// loadList decodes the list stored under key. Missing or unreadable values,
// including ones that only partly decode, load as an empty list.
func loadList[T any](ctx context.Context, s *Service, key string) []T {
	raw, err := s.state.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("reading calendar state failed", "key", key, "error", err)
		}
		return []T{}
	}
	if strings.TrimSpace(raw) == "" {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn("discarding corrupted calendar state", "key", key, "error", err)
		return []T{}
	}
	if out == nil {
		return []T{}
	}
	return out
}

func (s *Service) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.state.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func validateEvent(in EventInput) (string, time.Time, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", time.Time{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	start, err := parseDate(in.Start)
	if err != nil {
		return "", time.Time{}, err
	}
	category := in.Category
	if category == "" {
		category = CategoryActivity
	}
	if _, ok := categoryColors[category]; !ok {
		return "", time.Time{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	return category, start, nil
}

func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return d, nil
}
