package model

// AuthorizationLevel is the location permission tier granted by the user.
type AuthorizationLevel string

const (
	AuthorizationNotDetermined AuthorizationLevel = "not_determined"
	AuthorizationDenied        AuthorizationLevel = "denied"
	AuthorizationWhenInUse     AuthorizationLevel = "authorized_when_in_use"
	AuthorizationAlways        AuthorizationLevel = "authorized_always"
)

// String returns the string representation of the authorization level.
func (a AuthorizationLevel) String() string {
	return string(a)
}

// IsValid checks whether the authorization level is a known value.
func (a AuthorizationLevel) IsValid() bool {
	return a.Rank() >= 0
}

// Rank orders levels from least to most permissive. Unknown levels rank -1.
func (a AuthorizationLevel) Rank() int {
	switch a {
	case AuthorizationNotDetermined:
		return 0
	case AuthorizationDenied:
		return 1
	case AuthorizationWhenInUse:
		return 2
	case AuthorizationAlways:
		return 3
	}
	return -1
}

// AllowsRegionMonitoring reports whether region subscriptions may be created
// at this level. Only always authorization does.
func (a AuthorizationLevel) AllowsRegionMonitoring() bool {
	return a == AuthorizationAlways
}
