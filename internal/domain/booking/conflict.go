package booking

import "github.com/clinic/reserve/pkg/model"

// FindConflict returns the first active appointment whose time footprint
// overlaps the candidate's, or nil when the candidate is free to book.
//
// Entries are skipped when they are soft-deleted, when they carry the
// excludeID (so an edited record never conflicts with its own prior
// state), or when they are special reservations: special appointments are
// invisible to conflict detection and may be double-booked freely.
//
// The function is pure; it walks existing in slice order and the first
// overlap wins.
func FindConflict(candidate *model.Appointment, existing []model.Appointment, excludeID int) *model.Appointment {
	span, ok := spanOf(candidate)
	if !ok {
		return nil
	}
	for i := range existing {
		other := &existing[i]
		if other.IsDeleted || other.ID == excludeID || other.ReservationType == model.ReservationSpecial {
			continue
		}
		otherSpan, ok := spanOf(other)
		if !ok {
			continue
		}
		if span.Overlaps(otherSpan) {
			return other
		}
	}
	return nil
}

// FindBlockedConflict returns the first active blocked slot covering the
// candidate's date whose blocked period overlaps the candidate's span, or
// nil. The same half-open semantics apply: an appointment starting exactly
// when a blocked period ends is allowed.
func FindBlockedConflict(candidate *model.Appointment, slots []model.BlockedSlot) *model.BlockedSlot {
	span, ok := spanOf(candidate)
	if !ok {
		return nil
	}
	for i := range slots {
		slot := &slots[i]
		if slot.IsDeleted {
			continue
		}
		blocked, ok := blockedSpan(slot, candidate.Date)
		if !ok {
			continue
		}
		if span.Overlaps(blocked) {
			return slot
		}
	}
	return nil
}
