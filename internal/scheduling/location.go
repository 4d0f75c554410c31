package scheduling

import (
	"encoding/json"
	"strings"
)

// LocationKind is the discriminator of a calendar location.
type LocationKind string

const (
	LocationInPerson LocationKind = "in_person"
	LocationVirtual  LocationKind = "virtual"
	LocationPhone    LocationKind = "phone"
	LocationCustom   LocationKind = "custom"
)

// DefaultLocationSummary is shown when a location carries no details.
const DefaultLocationSummary = "Location details will be shared by the host"

// Location is a closed set of variants; each carries only its own payload.
type Location interface {
	Kind() LocationKind
	// Summary is a human-readable description for notifications.
	Summary() string
	isLocation()
}

type InPerson struct {
	Address string
}

type Virtual struct {
	// Provider is the preferred meeting service, e.g. "google_meet" or "zoom".
	Provider string
	Details  string
}

type Phone struct {
	Number string
}

type Custom struct {
	Details string
}

func (InPerson) Kind() LocationKind { return LocationInPerson }
func (Virtual) Kind() LocationKind  { return LocationVirtual }
func (Phone) Kind() LocationKind    { return LocationPhone }
func (Custom) Kind() LocationKind   { return LocationCustom }

func (InPerson) isLocation() {}
func (Virtual) isLocation()  {}
func (Phone) isLocation()    {}
func (Custom) isLocation()   {}

func (l InPerson) Summary() string { return orPlaceholder(l.Address) }
func (l Phone) Summary() string    { return orPlaceholder(l.Number) }
func (l Custom) Summary() string   { return orPlaceholder(l.Details) }

func (l Virtual) Summary() string {
	provider := strings.TrimSpace(l.Provider)
	details := strings.TrimSpace(l.Details)
	switch {
	case provider != "" && details != "":
		return provider + ": " + details
	case provider != "":
		return provider
	default:
		return orPlaceholder(details)
	}
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return DefaultLocationSummary
}

// LocationSummary tolerates a nil location.
func LocationSummary(l Location) string {
	if l == nil {
		return DefaultLocationSummary
	}
	return l.Summary()
}

// LocationRecord is the flat wire and storage form of a Location.
type LocationRecord struct {
	Kind            LocationKind `json:"kind"`
	Details         string       `json:"details,omitempty"`
	VirtualProvider string       `json:"virtual_provider,omitempty"`
}

// Record flattens a location. A nil location becomes a custom location without details.
func Record(l Location) LocationRecord {
	switch v := l.(type) {
	case InPerson:
		return LocationRecord{Kind: LocationInPerson, Details: v.Address}
	case Virtual:
		return LocationRecord{Kind: LocationVirtual, Details: v.Details, VirtualProvider: v.Provider}
	case Phone:
		return LocationRecord{Kind: LocationPhone, Details: v.Number}
	case Custom:
		return LocationRecord{Kind: LocationCustom, Details: v.Details}
	}
	return LocationRecord{Kind: LocationCustom}
}

// Location decodes the record into its variant.
func (r LocationRecord) Location() (Location, error) {
	switch r.Kind {
	case LocationInPerson:
		return InPerson{Address: r.Details}, nil
	case LocationVirtual:
		return Virtual{Provider: r.VirtualProvider, Details: r.Details}, nil
	case LocationPhone:
		return Phone{Number: r.Details}, nil
	case LocationCustom, "":
		return Custom{Details: r.Details}, nil
	}
	return nil, Invalid("location.kind", "unknown location kind "+string(r.Kind))
}

type calendarJSON Calendar

type calendarWire struct {
	*calendarJSON
	Location LocationRecord `json:"location"`
}

func (c Calendar) MarshalJSON() ([]byte, error) {
	return json.Marshal(calendarWire{calendarJSON: (*calendarJSON)(&c), Location: Record(c.Location)})
}

func (c *Calendar) UnmarshalJSON(data []byte) error {
	w := calendarWire{calendarJSON: (*calendarJSON)(c)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	loc, err := w.Location.Location()
	if err != nil {
		return err
	}
	c.Location = loc
	return nil
}
