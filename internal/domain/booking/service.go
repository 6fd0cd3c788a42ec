package booking

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/reserve/internal/platform/store"
	"github.com/clinic/reserve/pkg/model"
)

// Store is the persistence boundary. Update serializes the whole
// read-modify-write cycle under one lock, so the conflict check and the
// subsequent insert cannot interleave with another request's.
type Store interface {
	View(ctx context.Context, fn func(*store.Snapshot) error) error
	Update(ctx context.Context, fn func(*store.Snapshot) error) error
}

// EventSink receives fire-and-forget realtime events. Implementations must
// never block or fail the calling mutation.
type EventSink interface {
	Emit(event string, payload any)
}

// Notifier delivers a best-effort email to every staff member with an
// address. Failures are the implementation's problem (logged, swallowed);
// they must not surface to the mutation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, subject, text, html string)
}

// Event names broadcast to connected clients.
const (
	EventAppointmentCreated = "appointmentCreated"
	EventAppointmentUpdated = "appointmentUpdated"
	EventAppointmentDeleted = "appointmentDeleted"
	EventBlockedSlotCreated = "blockedSlotCreated"
	EventBlockedSlotUpdated = "blockedSlotUpdated"
	EventBlockedSlotDeleted = "blockedSlotDeleted"
)

var patientIDPattern = regexp.MustCompile(`^[0-9]+$`)

// AppointmentInput is a client payload for create and update. Nil fields
// are "not provided": on update they leave the stored value untouched, so
// partial edits keep unrelated fields intact.
type AppointmentInput struct {
	ReservationType  *model.ReservationType `json:"reservationType"`
	PatientID        *string                `json:"patientId"`
	PatientName      *string                `json:"patientName"`
	Date             *string                `json:"date"`
	Time             *string                `json:"time"`
	Consultation     *model.Consultation    `json:"consultation"`
	FacilityName     *string                `json:"facilityName"`
	StartTimeRange   *string                `json:"startTimeRange"`
	EndTimeRange     *string                `json:"endTimeRange"`
	Reason           *string                `json:"reason"`
	SendNotification bool                   `json:"sendNotification"`
}

func (in *AppointmentInput) apply(a *model.Appointment) {
	if in.ReservationType != nil {
		a.ReservationType = *in.ReservationType
	}
	if in.PatientID != nil {
		a.PatientID = *in.PatientID
	}
	if in.PatientName != nil {
		a.PatientName = *in.PatientName
	}
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.Time != nil {
		a.Time = *in.Time
	}
	if in.Consultation != nil {
		a.Consultation = *in.Consultation
	}
	if in.FacilityName != nil {
		a.FacilityName = *in.FacilityName
	}
	if in.StartTimeRange != nil {
		a.StartTimeRange = *in.StartTimeRange
	}
	if in.EndTimeRange != nil {
		a.EndTimeRange = *in.EndTimeRange
	}
	if in.Reason != nil {
		a.Reason = *in.Reason
	}
}

// Service orchestrates the appointment lifecycle: validation, conflict
// checking, persistence, and the broadcast/email side effects.
type Service struct {
	store    Store
	events   EventSink
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(st Store, events EventSink, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		events:   events,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns all active appointments, optionally filtered to one date.
func (s *Service) List(ctx context.Context, date string) ([]model.Appointment, error) {
	result := []model.Appointment{}
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		for _, a := range snap.Appointments {
			if a.IsDeleted {
				continue
			}
			if date != "" && a.Date != date {
				continue
			}
			result = append(result, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a single active appointment by id.
func (s *Service) Get(ctx context.Context, id int) (model.Appointment, error) {
	var found model.Appointment
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		i := snap.FindAppointment(id)
		if i < 0 || snap.Appointments[i].IsDeleted {
			return ErrNotFound
		}
		found = snap.Appointments[i]
		return nil
	})
	return found, err
}

// validate applies the kind-specific required-field and format rules to a
// fully merged record.
func validate(a *model.Appointment) error {
	if a.ReservationType == "" || a.Date == "" {
		return invalidf("reservation type and date are required")
	}
	if !a.ReservationType.Valid() {
		return invalidf("unknown reservation type %q", a.ReservationType)
	}
	switch a.ReservationType {
	case model.ReservationOutpatient:
		if a.PatientName == "" || a.Time == "" {
			return invalidf("patient name and time are required for outpatient reservations")
		}
		if a.PatientID != "" && !patientIDPattern.MatchString(a.PatientID) {
			return invalidf("patient id must contain digits only")
		}
	case model.ReservationVisit, model.ReservationRehab:
		if a.StartTimeRange == "" || a.EndTimeRange == "" {
			return invalidf("start and end time are required for visit and rehab reservations")
		}
		if a.StartTimeRange >= a.EndTimeRange {
			return invalidf("start time must be before end time")
		}
	case model.ReservationSpecial:
		if a.PatientName == "" {
			return invalidf("patient name and date are required for special reservations")
		}
		if a.PatientID != "" && !patientIDPattern.MatchString(a.PatientID) {
			return invalidf("patient id must contain digits only")
		}
	}
	return nil
}

// normalize clears the fields that do not belong to the record's current
// kind, so a record edited from one kind to another never keeps stale
// fields from its previous life. Special records are left as submitted.
func normalize(a *model.Appointment) {
	switch a.ReservationType {
	case model.ReservationOutpatient:
		a.FacilityName = ""
		a.StartTimeRange = ""
		a.EndTimeRange = ""
	case model.ReservationVisit:
		a.PatientID = ""
		a.PatientName = ""
		a.Time = ""
	case model.ReservationRehab:
		a.PatientID = ""
		a.PatientName = ""
		a.Time = ""
		a.FacilityName = ""
		a.Consultation = nil
	}
}

// checkConflicts rejects the candidate when it overlaps another active
// appointment or an active blocked slot. Special reservations skip every
// check: they never conflict with anything, including each other.
func checkConflicts(candidate *model.Appointment, snap *store.Snapshot, excludeID int) error {
	if candidate.ReservationType == model.ReservationSpecial {
		return nil
	}
	if hit := FindConflict(candidate, snap.Appointments, excludeID); hit != nil {
		return &ConflictError{Message: msgSlotTaken}
	}
	if hit := FindBlockedConflict(candidate, snap.BlockedSlots); hit != nil {
		return &ConflictError{Message: msgSlotBlocked}
	}
	return nil
}

// Create validates, conflict-checks, and persists a new appointment, then
// broadcasts the created record and optionally emails all staff.
func (s *Service) Create(ctx context.Context, in AppointmentInput, actor string) (model.Appointment, error) {
	var created model.Appointment
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		a := model.Appointment{}
		in.apply(&a)
		if err := validate(&a); err != nil {
			return err
		}
		normalize(&a)
		if err := checkConflicts(&a, snap, 0); err != nil {
			return err
		}
		now := s.timestamp()
		a.LastUpdatedBy = actor
		a.CreatedAt = now
		a.LastUpdatedAt = now
		created = snap.InsertAppointment(a)
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.events.Emit(EventAppointmentCreated, created)
	if in.SendNotification {
		subject, text, html := createMail(&created, actor)
		s.notifier.Notify(ctx, subject, text, html)
	}
	return created, nil
}

// Update merges the input onto the stored record, re-validates,
// normalizes, conflict-checks excluding the record itself, and persists.
// Normalization runs before the conflict check so a kind switch is judged
// on the new kind's fields, not on leftovers from the old one.
// Soft-deleted records cannot be updated.
func (s *Service) Update(ctx context.Context, id int, in AppointmentInput, actor string) (model.Appointment, error) {
	var before, after model.Appointment
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindAppointment(id)
		if i < 0 || snap.Appointments[i].IsDeleted {
			return ErrNotFound
		}
		before = snap.Appointments[i]

		merged := before
		in.apply(&merged)
		if err := validate(&merged); err != nil {
			return err
		}
		normalize(&merged)
		if err := checkConflicts(&merged, snap, id); err != nil {
			return err
		}
		merged.LastUpdatedBy = actor
		merged.LastUpdatedAt = s.timestamp()
		snap.Appointments[i] = merged
		after = merged
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.events.Emit(EventAppointmentUpdated, after)
	if in.SendNotification {
		subject, text, html := updateMail(&before, &after, actor)
		s.notifier.Notify(ctx, subject, text, html)
	}
	return after, nil
}

// Delete soft-deletes the record; the row is kept for history and excluded
// from listings and conflict checks from now on.
func (s *Service) Delete(ctx context.Context, id int, actor string, sendNotification bool) error {
	var snapshot model.Appointment
	err := s.store.Update(ctx, func(snap *store.Snapshot) error {
		i := snap.FindAppointment(id)
		if i < 0 {
			return ErrNotFound
		}
		snapshot = snap.Appointments[i]
		snap.Appointments[i].IsDeleted = true
		snap.Appointments[i].LastUpdatedBy = actor
		snap.Appointments[i].LastUpdatedAt = s.timestamp()
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Emit(EventAppointmentDeleted, id)
	if sendNotification {
		subject, text, html := cancelMail(&snapshot, actor)
		s.notifier.Notify(ctx, subject, text, html)
	}
	return nil
}

// CreateSpecial registers a special reservation. Only the instant-style
// fields are taken from the input, and no conflict check runs: special
// reservations are allowed to double-book anything.
func (s *Service) CreateSpecial(ctx context.Context, in AppointmentInput, actor string) (model.Appointment, error) {
	special := model.ReservationSpecial
	in.ReservationType = &special
	in.FacilityName = nil
	in.StartTimeRange = nil
	in.EndTimeRange = nil
	in.Consultation = nil
	return s.Create(ctx, in, actor)
}

// UpdateSpecial edits a special reservation with the same merge semantics
// as Update; the conflict check is skipped by virtue of the record's kind.
func (s *Service) UpdateSpecial(ctx context.Context, id int, in AppointmentInput, actor string) (model.Appointment, error) {
	special := model.ReservationSpecial
	in.ReservationType = &special
	return s.Update(ctx, id, in, actor)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
