// Package model holds the entity types shared by the domain services and
// the snapshot store. All temporal fields are plain strings in the wire
// formats the clients send: dates as "2006-01-02", clock times as "15:04".
package model

import (
	"encoding/json"
	"strings"
)

// ReservationType discriminates the four appointment kinds.
type ReservationType string

const (
	ReservationOutpatient ReservationType = "outpatient"
	ReservationVisit      ReservationType = "visit"
	ReservationRehab      ReservationType = "rehab"
	ReservationSpecial    ReservationType = "special"
)

// Valid reports whether t is one of the four known kinds.
func (t ReservationType) Valid() bool {
	switch t {
	case ReservationOutpatient, ReservationVisit, ReservationRehab, ReservationSpecial:
		return true
	}
	return false
}

// Consultation is a free-text consultation description. Older clients send a
// single string, newer ones a list of tags; both unmarshal into a list.
type Consultation []string

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (c *Consultation) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		if single == "" {
			*c = nil
		} else {
			*c = Consultation{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// String joins the entries for display in notification mails.
func (c Consultation) String() string {
	return strings.Join(c, ", ")
}

// Appointment is the central reservation record. Which optional fields are
// populated depends on ReservationType: outpatient and special carry a
// single clock time, visit and rehab carry a start/end range. The lifecycle
// service keeps the unused set cleared.
type Appointment struct {
	ID              int             `json:"id"`
	ReservationType ReservationType `json:"reservationType"`
	Date            string          `json:"date"`
	PatientID       string          `json:"patientId,omitempty"`
	PatientName     string          `json:"patientName,omitempty"`
	Time            string          `json:"time,omitempty"`
	Consultation    Consultation    `json:"consultation,omitempty"`
	FacilityName    string          `json:"facilityName,omitempty"`
	StartTimeRange  string          `json:"startTimeRange,omitempty"`
	EndTimeRange    string          `json:"endTimeRange,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	IsDeleted       bool            `json:"isDeleted,omitempty"`
	LastUpdatedBy   string          `json:"lastUpdatedBy,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	LastUpdatedAt   string          `json:"lastUpdatedAt,omitempty"`
}

// HasTime reports whether the record carries an instant-style clock time.
func (a *Appointment) HasTime() bool { return a.Time != "" }

// HasRange reports whether the record carries a complete time range.
func (a *Appointment) HasRange() bool { return a.StartTimeRange != "" && a.EndTimeRange != "" }

// BlockedSlot marks a date (or date range) during which ordinary
// appointments must not be booked. An empty EndDate means a single day; an
// empty StartTime/EndTime pair means the whole day is blocked.
type BlockedSlot struct {
	ID            int    `json:"id"`
	Date          string `json:"date"`
	EndDate       string `json:"endDate,omitempty"`
	StartTime     string `json:"startTime,omitempty"`
	EndTime       string `json:"endTime,omitempty"`
	Reason        string `json:"reason"`
	IsDeleted     bool   `json:"isDeleted,omitempty"`
	LastUpdatedBy string `json:"lastUpdatedBy,omitempty"`
}

// AllDay reports whether the slot blocks the entire day.
func (s *BlockedSlot) AllDay() bool { return s.StartTime == "" || s.EndTime == "" }

// CoversDate reports whether the given calendar date falls inside the
// slot's date range. Dates are zero-padded ISO strings, so lexical
// comparison is chronological.
func (s *BlockedSlot) CoversDate(date string) bool {
	if s.EndDate == "" {
		return s.Date == date
	}
	return s.Date <= date && date <= s.EndDate
}

// Role controls what a user may do. Viewers are read-only system-wide.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleGeneral Role = "general"
	RoleViewer  Role = "viewer"
)

// User is a staff account. The userId doubles as the bearer token; this is
// a known weakness of the scheme that is deliberately preserved for
// compatibility with existing clients.
type User struct {
	UserID             string `json:"userId"`
	Password           string `json:"password,omitempty"`
	Name               string `json:"name"`
	Department         string `json:"department,omitempty"`
	Email              string `json:"email,omitempty"`
	Role               Role   `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword,omitempty"`
	IsDeleted          bool   `json:"isDeleted,omitempty"`
	LastUpdatedBy      string `json:"lastUpdatedBy,omitempty"`
}

// Sanitized returns a copy safe to return to clients: the password is
// stripped and omitted from JSON.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}
