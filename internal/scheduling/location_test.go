package scheduling

import (
	"encoding/json"
	"testing"
)

func TestLocationSummary(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{InPerson{Address: "12 Harbour St"}, "12 Harbour St"},
		{InPerson{}, DefaultLocationSummary},
		{Virtual{Provider: "zoom", Details: "https://zoom.us/j/1"}, "zoom: https://zoom.us/j/1"},
		{Virtual{Provider: "google_meet"}, "google_meet"},
		{Virtual{Details: "link in invite"}, "link in invite"},
		{Virtual{}, DefaultLocationSummary},
		{Phone{Number: "+44 20 7946 0000"}, "+44 20 7946 0000"},
		{Custom{Details: "  "}, DefaultLocationSummary},
		{nil, DefaultLocationSummary},
	}
	for _, tt := range tests {
		if got := LocationSummary(tt.loc); got != tt.want {
			t.Errorf("LocationSummary(%#v) = %q, want %q", tt.loc, got, tt.want)
		}
	}
}

func TestCalendarJSONCarriesLocationVariant(t *testing.T) {
	cal := testCalendar()
	cal.Location = Phone{Number: "555-0100"}

	data, err := json.Marshal(cal)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Calendar
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	phone, ok := back.Location.(Phone)
	if !ok || phone.Number != "555-0100" {
		t.Fatalf("location round trip lost variant: %#v", back.Location)
	}
	if back.DurationMinutes != cal.DurationMinutes || back.TimeZone != cal.TimeZone {
		t.Fatalf("scalar fields lost: %+v", back)
	}
}

func TestLocationRecordRejectsUnknownKind(t *testing.T) {
	if _, err := (LocationRecord{Kind: "carrier_pigeon"}).Location(); err == nil {
		t.Fatal("expected error")
	}
}
