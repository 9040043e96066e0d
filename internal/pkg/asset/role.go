package asset

import "fmt"

// Role partitions devices by their place in the diagram. Role decides the
// nominal voltage class and how the device is simulated.
type Role int

const (
	Main Role = iota
	TieBreaker
	Feeder
	Generator
)

var roleNames = map[Role]string{
	Main:       "main",
	TieBreaker: "tie",
	Feeder:     "feeder",
	Generator:  "generator",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// NominalVolt returns 13.8kV for mains and 4.16kV for everything downstream.
func (r Role) NominalVolt() float64 {
	if r == Main {
		return MainNominalVolt
	}
	return DistributionNominalVolt
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	name, ok := roleNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(b []byte) error {
	for role, name := range roleNames {
		if name == string(b) {
			*r = role
			return nil
		}
	}
	return fmt.Errorf("unknown role %q", string(b))
}
