package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConsultationUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single string", `"checkup"`, []string{"checkup"}},
		{"empty string", `""`, nil},
		{"array", `["checkup","follow-up"]`, []string{"checkup", "follow-up"}},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Consultation
			if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(c) != len(tt.want) {
				t.Fatalf("got %v, want %v", c, tt.want)
			}
			for i := range c {
				if c[i] != tt.want[i] {
					t.Errorf("got %v, want %v", c, tt.want)
				}
			}
		})
	}

	var c Consultation
	if err := json.Unmarshal([]byte(`42`), &c); err == nil {
		t.Error("numbers should not unmarshal into a consultation")
	}
}

func TestReservationTypeValid(t *testing.T) {
	for _, valid := range []ReservationType{ReservationOutpatient, ReservationVisit, ReservationRehab, ReservationSpecial} {
		if !valid.Valid() {
			t.Errorf("%q should be valid", valid)
		}
	}
	if ReservationType("walkin").Valid() {
		t.Error("unknown kind should be invalid")
	}
	if ReservationType("").Valid() {
		t.Error("empty kind should be invalid")
	}
}

func TestBlockedSlotCoversDate(t *testing.T) {
	single := BlockedSlot{Date: "2025-06-10"}
	if !single.CoversDate("2025-06-10") || single.CoversDate("2025-06-11") {
		t.Error("single-day slot should cover exactly its date")
	}

	ranged := BlockedSlot{Date: "2025-06-10", EndDate: "2025-06-12"}
	for _, d := range []string{"2025-06-10", "2025-06-11", "2025-06-12"} {
		if !ranged.CoversDate(d) {
			t.Errorf("ranged slot should cover %s", d)
		}
	}
	if ranged.CoversDate("2025-06-09") || ranged.CoversDate("2025-06-13") {
		t.Error("ranged slot should not cover dates outside its range")
	}
}

func TestBlockedSlotAllDay(t *testing.T) {
	if !(&BlockedSlot{}).AllDay() {
		t.Error("slot without times is all-day")
	}
	if !(&BlockedSlot{StartTime: "10:00"}).AllDay() {
		t.Error("slot with only a start time is treated as all-day")
	}
	if (&BlockedSlot{StartTime: "10:00", EndTime: "12:00"}).AllDay() {
		t.Error("slot with both times is not all-day")
	}
}

func TestUserSanitized(t *testing.T) {
	u := User{UserID: "alice", Password: "secret", Name: "Alice"}
	s := u.Sanitized()
	if s.Password != "" {
		t.Error("sanitized user must not carry the password")
	}
	if u.Password != "secret" {
		t.Error("original must be untouched")
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("serialized sanitized user must not contain the password")
	}
}
