package booking

import (
	"strings"
	"testing"

	"github.com/clinic/reserve/pkg/model"
)

func TestDiffLines(t *testing.T) {
	before := outpatientAt(1, "2025-06-01", "10:00")
	after := before
	after.Time = "11:00"
	after.PatientName = "Renamed"

	changes := diffLines(&before, &after)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", changes)
	}
	joined := strings.Join(changes, "\n")
	if !strings.Contains(joined, "10:00 -> 11:00") {
		t.Errorf("time change missing: %v", changes)
	}
	if !strings.Contains(joined, "Renamed") {
		t.Errorf("name change missing: %v", changes)
	}
}

func TestDiffLinesRestrictedToNewKind(t *testing.T) {
	before := outpatientAt(1, "2025-06-01", "10:00")
	after := visitBetween(1, "2025-06-01", "13:00", "15:00")

	changes := diffLines(&before, &after)
	joined := strings.Join(changes, "\n")
	if !strings.Contains(joined, "Reservation type") {
		t.Errorf("kind change should be reported: %v", changes)
	}
	// The old kind's instant time is irrelevant to a visit record.
	if strings.Contains(joined, "Time:") {
		t.Errorf("instant fields should not appear for a visit: %v", changes)
	}
}

func TestUpdateMailCarriesChanges(t *testing.T) {
	before := outpatientAt(1, "2025-06-01", "10:00")
	after := before
	after.Time = "11:00"

	subject, text, html := updateMail(&before, &after, "editor")
	if subject == "" {
		t.Error("subject should not be empty")
	}
	if !strings.Contains(text, "Changes:") || !strings.Contains(text, "10:00 -> 11:00") {
		t.Errorf("text should list the changes: %q", text)
	}
	if !strings.Contains(html, "<li>") {
		t.Errorf("html should render changes as a list: %q", html)
	}
	if !strings.Contains(text, "Registered by: editor") {
		t.Errorf("actor missing from body: %q", text)
	}
}

func TestCreateMailPerKind(t *testing.T) {
	tests := []struct {
		name string
		a    model.Appointment
		want string
	}{
		{"outpatient", outpatientAt(1, "2025-06-01", "10:00"), "Patient:"},
		{"visit", visitBetween(1, "2025-06-01", "13:00", "15:00"), "Facility:"},
		{"rehab", model.Appointment{
			ReservationType: model.ReservationRehab,
			Date:            "2025-06-01",
			StartTimeRange:  "14:00",
			EndTimeRange:    "14:30",
		}, "When: 2025-06-01 14:00 - 14:30"},
		{"special", model.Appointment{
			ReservationType: model.ReservationSpecial,
			Date:            "2025-06-01",
			Time:            "10:00",
			PatientName:     "VIP",
			Reason:          "urgent consult",
		}, "Reason: urgent consult"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, text, html := createMail(&tt.a, "tester")
			if !strings.Contains(text, tt.want) {
				t.Errorf("text missing %q: %q", tt.want, text)
			}
			if !strings.Contains(html, "<ul>") {
				t.Errorf("html should be a list: %q", html)
			}
		})
	}
}
