package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/workdeck/planner/internal/apperror"
	"github.com/workdeck/planner/internal/sanitize"
)

// EventService defines business logic for the local event store.
type EventService interface {
	ListEvents(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error)
	GetEvent(ctx context.Context, ownerID, id string) (*Event, error)
	CreateEvent(ctx context.Context, ownerID string, input CreateEventInput) (*Event, error)
	UpdateEvent(ctx context.Context, ownerID, id string, input UpdateEventInput) (*Event, error)
	DeleteEvent(ctx context.Context, ownerID, id string) error
	CreateEventFromTask(ctx context.Context, ownerID, taskID, title string, startAt time.Time, durationMinutes int) (*Event, error)
}

// eventService is the default EventService implementation.
type eventService struct {
	repo EventRepository
	now  func() time.Time
}

// NewEventService creates an EventService backed by the given repository.
func NewEventService(repo EventRepository) EventService {
	return &eventService{repo: repo, now: time.Now}
}

// ListEvents returns the owner's events overlapping [from, to).
func (s *eventService) ListEvents(ctx context.Context, ownerID string, from, to time.Time) ([]Event, error) {
	if !to.After(from) {
		return nil, apperror.NewValidation("'to' must be after 'from'")
	}
	if to.Sub(from) > 62*24*time.Hour {
		return nil, apperror.NewValidation("range may span at most 62 days")
	}
	evts, err := s.repo.ListRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if evts == nil {
		evts = []Event{}
	}
	return evts, nil
}

// GetEvent returns one of the owner's events.
func (s *eventService) GetEvent(ctx context.Context, ownerID, id string) (*Event, error) {
	evt, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if evt == nil {
		return nil, apperror.NewNotFound("event not found")
	}
	return evt, nil
}

// CreateEvent validates input and stores a new event.
func (s *eventService) CreateEvent(ctx context.Context, ownerID string, input CreateEventInput) (*Event, error) {
	title := sanitize.Text(input.Title)
	if title == "" {
		return nil, apperror.NewValidation("event title is required")
	}
	color, ok := sanitize.Color(input.Color)
	if !ok {
		return nil, apperror.NewValidation("color must be #rrggbb or a palette name")
	}
	if err := validateSpan(input.StartAt, input.EndAt); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	evt := &Event{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		StartAt:   input.StartAt.UTC(),
		EndAt:     input.EndAt.UTC(),
		Color:     color,
		Private:   input.Private,
		Billable:  input.Billable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if taskID := strings.TrimSpace(input.TaskID); taskID != "" {
		evt.TaskID = &taskID
	}

	if err := s.repo.Create(ctx, evt); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return evt, nil
}

// UpdateEvent applies a partial update to one of the owner's events.
func (s *eventService) UpdateEvent(ctx context.Context, ownerID, id string, input UpdateEventInput) (*Event, error) {
	evt, err := s.GetEvent(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := sanitize.Text(*input.Title)
		if title == "" {
			return nil, apperror.NewValidation("event title is required")
		}
		evt.Title = title
	}
	if input.Color != nil {
		color, ok := sanitize.Color(*input.Color)
		if !ok {
			return nil, apperror.NewValidation("color must be #rrggbb or a palette name")
		}
		evt.Color = color
	}
	if input.StartAt != nil {
		evt.StartAt = input.StartAt.UTC()
	}
	if input.EndAt != nil {
		evt.EndAt = input.EndAt.UTC()
	}
	if err := validateSpan(evt.StartAt, evt.EndAt); err != nil {
		return nil, err
	}
	if input.Private != nil {
		evt.Private = *input.Private
	}
	if input.Billable != nil {
		evt.Billable = *input.Billable
	}
	evt.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, evt); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return evt, nil
}

// DeleteEvent removes one of the owner's events.
func (s *eventService) DeleteEvent(ctx context.Context, ownerID, id string) error {
	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !deleted {
		return apperror.NewNotFound("event not found")
	}
	return nil
}

// CreateEventFromTask schedules a task as an event of the given length.
func (s *eventService) CreateEventFromTask(ctx context.Context, ownerID, taskID, title string, startAt time.Time, durationMinutes int) (*Event, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, apperror.NewValidation("task id is required")
	}
	if durationMinutes <= 0 {
		return nil, apperror.NewValidation("duration must be positive")
	}
	if strings.TrimSpace(title) == "" {
		title = "Task " + taskID
	}
	return s.CreateEvent(ctx, ownerID, CreateEventInput{
		Title:   title,
		StartAt: startAt,
		EndAt:   startAt.Add(time.Duration(durationMinutes) * time.Minute),
		TaskID:  taskID,
	})
}

// validateSpan checks the start/end pair of an event.
func validateSpan(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperror.NewValidation("start and end are required")
	}
	if !end.After(start) {
		return apperror.NewValidation("end must be after start")
	}
	if end.Sub(start) > maxEventSpan {
		return apperror.NewValidation("event may last at most 7 days")
	}
	return nil
}
