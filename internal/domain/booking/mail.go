package booking

import (
	"fmt"
	"strings"

	"github.com/clinic/reserve/pkg/model"
)

// Email bodies are composed here as plain text plus a small HTML variant,
// one flavor per reservation kind. The notifier appends the system URL
// footer and handles delivery.

const emptyField = "(not set)"

func orEmpty(v string) string {
	if v == "" {
		return emptyField
	}
	return v
}

func kindLabel(t model.ReservationType) string {
	switch t {
	case model.ReservationOutpatient:
		return "Outpatient"
	case model.ReservationVisit:
		return "Home Visit"
	case model.ReservationRehab:
		return "Rehab Meeting"
	case model.ReservationSpecial:
		return "Special"
	}
	return string(t)
}

// mailLines renders the per-kind detail lines shared by the create and
// cancel messages.
func mailLines(a *model.Appointment, actor string) []string {
	var lines []string
	switch a.ReservationType {
	case model.ReservationOutpatient:
		lines = []string{
			"Patient: " + orEmpty(a.PatientName),
			fmt.Sprintf("When: %s %s", a.Date, a.Time),
			"Consultation: " + orEmpty(a.Consultation.String()),
		}
	case model.ReservationVisit:
		lines = []string{
			"Facility: " + orEmpty(a.FacilityName),
			fmt.Sprintf("When: %s %s - %s", a.Date, a.StartTimeRange, a.EndTimeRange),
			"Consultation: " + orEmpty(a.Consultation.String()),
		}
	case model.ReservationRehab:
		lines = []string{
			fmt.Sprintf("When: %s %s - %s", a.Date, a.StartTimeRange, a.EndTimeRange),
		}
	case model.ReservationSpecial:
		lines = []string{
			"Patient: " + orEmpty(a.PatientName),
			fmt.Sprintf("When: %s %s", a.Date, a.Time),
			"Reason: " + orEmpty(a.Reason),
		}
	}
	return append(lines, "Registered by: "+actor)
}

func renderText(intro string, lines []string) string {
	return intro + "\n" + strings.Join(lines, "\n")
}

func renderHTML(intro string, lines []string) string {
	var b strings.Builder
	b.WriteString("<p>" + intro + "</p><ul>")
	for _, l := range lines {
		b.WriteString("<li>" + l + "</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func createMail(a *model.Appointment, actor string) (subject, text, html string) {
	subject = fmt.Sprintf("New reservation registered (%s)", kindLabel(a.ReservationType))
	intro := fmt.Sprintf("A new %s reservation has been registered.", strings.ToLower(kindLabel(a.ReservationType)))
	lines := mailLines(a, actor)
	return subject, renderText(intro, lines), renderHTML(intro, lines)
}

func cancelMail(a *model.Appointment, actor string) (subject, text, html string) {
	subject = fmt.Sprintf("Reservation cancelled (%s)", kindLabel(a.ReservationType))
	intro := fmt.Sprintf("A %s reservation has been cancelled.", strings.ToLower(kindLabel(a.ReservationType)))
	lines := mailLines(a, actor)
	return subject, renderText(intro, lines), renderHTML(intro, lines)
}

// diffLines lists only the fields that changed between the pre-update
// snapshot and the saved record, restricted to the fields relevant to the
// record's (new) kind.
func diffLines(before, after *model.Appointment) []string {
	var changes []string
	add := func(label, old, new string) {
		if old != new {
			changes = append(changes, fmt.Sprintf("%s: %s -> %s", label, orEmpty(old), orEmpty(new)))
		}
	}
	add("Reservation type", string(before.ReservationType), string(after.ReservationType))
	switch after.ReservationType {
	case model.ReservationOutpatient:
		add("Patient ID", before.PatientID, after.PatientID)
		add("Patient", before.PatientName, after.PatientName)
		add("Time", before.Time, after.Time)
		add("Consultation", before.Consultation.String(), after.Consultation.String())
	case model.ReservationVisit:
		add("Facility", before.FacilityName, after.FacilityName)
		add("Start time", before.StartTimeRange, after.StartTimeRange)
		add("End time", before.EndTimeRange, after.EndTimeRange)
		add("Consultation", before.Consultation.String(), after.Consultation.String())
	case model.ReservationRehab:
		add("Start time", before.StartTimeRange, after.StartTimeRange)
		add("End time", before.EndTimeRange, after.EndTimeRange)
	case model.ReservationSpecial:
		add("Patient ID", before.PatientID, after.PatientID)
		add("Patient", before.PatientName, after.PatientName)
		add("Time", before.Time, after.Time)
		add("Reason", before.Reason, after.Reason)
	}
	add("Date", before.Date, after.Date)
	return changes
}

func updateMail(before, after *model.Appointment, actor string) (subject, text, html string) {
	subject = fmt.Sprintf("Reservation updated (%s)", kindLabel(after.ReservationType))
	intro := fmt.Sprintf("A %s reservation has been updated.", strings.ToLower(kindLabel(after.ReservationType)))
	lines := mailLines(after, actor)

	changes := diffLines(before, after)
	text = renderText(intro, lines)
	html = renderHTML(intro, lines)
	if len(changes) > 0 {
		text += "\n\nChanges:\n" + strings.Join(changes, "\n")
		var b strings.Builder
		b.WriteString("<p>Changes:</p><ul>")
		for _, c := range changes {
			b.WriteString("<li>" + c + "</li>")
		}
		b.WriteString("</ul>")
		html += b.String()
	}
	return subject, text, html
}
