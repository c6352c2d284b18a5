package model

// EventType selects which boundary crossing a geotification fires on.
type EventType string

const (
	EventOnEntry EventType = "on_entry"
	EventOnExit  EventType = "on_exit"
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	return string(e)
}

// IsValid checks whether the event type is a known value.
func (e EventType) IsValid() bool {
	switch e {
	case EventOnEntry, EventOnExit:
		return true
	}
	return false
}

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsValid reports whether both components are inside their legal ranges.
func (c Coordinate) IsValid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Geotification is a named circular region tied to an entry or exit trigger.
type Geotification struct {
	Identifier string     `json:"identifier"`
	Coordinate Coordinate `json:"coordinate"`
	Radius     float64    `json:"radius"` // meters
	Note       string     `json:"note"`
	EventType  EventType  `json:"event_type"`
}
