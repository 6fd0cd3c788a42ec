package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/reserve/internal/platform/store"
	"github.com/clinic/reserve/pkg/model"
)

// HolidaySource supplies a date -> holiday-name map for the bulk import.
// Implementations must respect the context deadline.
type HolidaySource interface {
	Fetch(ctx context.Context) (map[string]string, error)
}

// BlockedSlotInput is a client payload for blocked-slot create and update.
// Nil fields are left untouched on update.
type BlockedSlotInput struct {
	Date             *string `json:"date"`
	EndDate          *string `json:"endDate"`
	StartTime        *string `json:"startTime"`
	EndTime          *string `json:"endTime"`
	Reason           *string `json:"reason"`
	SendNotification bool    `json:"sendNotification"`
}

func (in *BlockedSlotInput) apply(b *model.BlockedSlot) {
	if in.Date != nil {
		b.Date = *in.Date
	}
	if in.EndDate != nil {
		b.EndDate = *in.EndDate
	}
	if in.StartTime != nil {
		b.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		b.EndTime = *in.EndTime
	}
	if in.Reason != nil {
		b.Reason = *in.Reason
	}
}

// BlockedSlotService manages unavailable periods. Creating a blocked slot
// deliberately does not reject overlaps with existing appointments; the
// enforcement runs the other way, when an appointment is booked.
type BlockedSlotService struct {
	store    Store
	events   EventSink
	notifier Notifier
	holidays HolidaySource
	logger   zerolog.Logger
	now      func() time.Time
}

func NewBlockedSlotService(st Store, events EventSink, notifier Notifier, holidays HolidaySource, logger zerolog.Logger) *BlockedSlotService {
	return &BlockedSlotService{
		store:    st,
		events:   events,
		notifier: notifier,
		holidays: holidays,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns all active blocked slots.
func (s *BlockedSlotService) List(ctx context.Context) ([]model.BlockedSlot, error) {
	result := []model.BlockedSlot{}
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		for _, b := range snap.BlockedSlots {
			if !b.IsDeleted {
				result = append(result, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Create registers a new blocked slot. Only date and reason are required.
func (s *BlockedSlotService) Create(ctx context.Context, in BlockedSlotInput, actor string) (model.BlockedSlot, error) {
	var created model.BlockedSlot
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		b := model.BlockedSlot{}
		in.apply(&b)
		if b.Date == "" || b.Reason == "" {
			return invalidf("date and reason are required")
		}
		b.LastUpdatedBy = actor
		created = snap.InsertBlockedSlot(b)
		return nil
	})
	if err != nil {
		return model.BlockedSlot{}, err
	}

	s.events.Emit(EventBlockedSlotCreated, created)
	if in.SendNotification {
		subject, text, html := blockedSlotMail("A new blocked period has been added.", "Blocked period added", &created, actor)
		s.notifier.Notify(ctx, subject, text, html)
	}
	return created, nil
}

// Update merges the input onto the stored slot and persists it.
func (s *BlockedSlotService) Update(ctx context.Context, id int, in BlockedSlotInput, actor string) (model.BlockedSlot, error) {
	var after model.BlockedSlot
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindBlockedSlot(id)
		if i < 0 || snap.BlockedSlots[i].IsDeleted {
			return ErrNotFound
		}
		merged := snap.BlockedSlots[i]
		in.apply(&merged)
		if merged.Date == "" || merged.Reason == "" {
			return invalidf("date and reason are required")
		}
		merged.LastUpdatedBy = actor
		snap.BlockedSlots[i] = merged
		after = merged
		return nil
	})
	if err != nil {
		return model.BlockedSlot{}, err
	}

	s.events.Emit(EventBlockedSlotUpdated, after)
	if in.SendNotification {
		subject, text, html := blockedSlotMail("A blocked period has been updated.", "Blocked period updated", &after, actor)
		s.notifier.Notify(ctx, subject, text, html)
	}
	return after, nil
}

// Delete soft-deletes the slot and always notifies staff, matching the
// long-standing behavior clients rely on.
func (s *BlockedSlotService) Delete(ctx context.Context, id int, actor string) error {
	var snapshot model.BlockedSlot
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindBlockedSlot(id)
		if i < 0 {
			return ErrNotFound
		}
		snapshot = snap.BlockedSlots[i]
		snap.BlockedSlots[i].IsDeleted = true
		snap.BlockedSlots[i].LastUpdatedBy = actor
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Emit(EventBlockedSlotDeleted, id)
	subject, text, html := blockedSlotMail("A blocked period has been removed.", "Blocked period removed", &snapshot, actor)
	s.notifier.Notify(ctx, subject, text, html)
	return nil
}

// RegisterHolidays fetches the public holiday list and inserts an all-day
// blocked slot for every (date, name) pair not already present verbatim,
// deleted slots included. Running the import twice therefore adds nothing
// the second time. It returns the number of slots added.
func (s *BlockedSlotService) RegisterHolidays(ctx context.Context, actor string) (int, error) {
	holidays, err := s.holidays.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch holidays: %w", err)
	}

	added := 0
	err = s.store.Update(ctx, func(snap *store.Snapshot) error {
		for date, name := range holidays {
			exists := false
			for i := range snap.BlockedSlots {
				if snap.BlockedSlots[i].Date == date && snap.BlockedSlots[i].Reason == name {
					exists = true
					break
				}
			}
			if exists {
				continue
			}
			snap.InsertBlockedSlot(model.BlockedSlot{
				Date:          date,
				Reason:        name,
				LastUpdatedBy: actor,
			})
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func blockedSlotMail(intro, subjectPrefix string, b *model.BlockedSlot, actor string) (subject, text, html string) {
	period := b.Date
	if b.EndDate != "" {
		period += " - " + b.EndDate
	}
	window := "all day"
	if !b.AllDay() {
		window = b.StartTime + " - " + b.EndTime
	}
	lines := []string{
		"Period: " + period,
		"Time: " + window,
		"Reason: " + orEmpty(b.Reason),
		"Registered by: " + actor,
	}
	subject = fmt.Sprintf("%s: %s", subjectPrefix, b.Reason)
	return subject, renderText(intro, lines), renderHTML(intro, lines)
}
