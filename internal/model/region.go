package model

// Region is the descriptor registered with the region monitoring gateway.
type Region struct {
	Identifier    string     `json:"identifier"`
	Center        Coordinate `json:"center"`
	Radius        float64    `json:"radius"`
	NotifyOnEntry bool       `json:"notify_on_entry"`
	NotifyOnExit  bool       `json:"notify_on_exit"`
}

// RegionFor builds the monitoring descriptor for g. Exactly one of the
// notify flags is set, derived from the event type.
func RegionFor(g Geotification) Region {
	onEntry := g.EventType == EventOnEntry
	return Region{
		Identifier:    g.Identifier,
		Center:        g.Coordinate,
		Radius:        g.Radius,
		NotifyOnEntry: onEntry,
		NotifyOnExit:  !onEntry,
	}
}
