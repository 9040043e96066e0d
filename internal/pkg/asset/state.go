package asset

import "fmt"

// State is a snapshot of every device in the diagram. It is a value:
// With returns a new State and never modifies the receiver, so a State
// handed to a reader stays consistent while the owner moves on.
type State struct {
	devices map[ID]Device
}

// NewState returns the diagram in its initial position: everything closed at
// nominal values except the tie.
func NewState() (State, error) {
	devices := make(map[ID]Device, len(catalogue))
	for _, id := range IDs() {
		d, err := NewDevice(id)
		if err != nil {
			return State{}, err
		}
		devices[id] = d
	}
	return State{devices}, nil
}

// Device returns the device with the given id.
func (s State) Device(id ID) (Device, error) {
	d, ok := s.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrInvalidDeviceID, id)
	}
	return d, nil
}

// Closed reports the breaker position of id. Unknown ids read as open.
func (s State) Closed(id ID) bool {
	return s.devices[id].status.Closed
}

// Devices returns every device in diagram order.
func (s State) Devices() []Device {
	devices := make([]Device, 0, len(s.devices))
	for _, id := range IDs() {
		if d, ok := s.devices[id]; ok {
			devices = append(devices, d)
		}
	}
	return devices
}

// Len is the number of devices in the state.
func (s State) Len() int {
	return len(s.devices)
}

// With returns a copy of the state with d replacing the device of the same id.
func (s State) With(d Device) (State, error) {
	if _, ok := s.devices[d.ID()]; !ok {
		return s, fmt.Errorf("%w: %q", ErrInvalidDeviceID, d.ID())
	}

	devices := make(map[ID]Device, len(s.devices))
	for id, v := range s.devices {
		devices[id] = v
	}
	devices[d.ID()] = d
	return State{devices}, nil
}

// Map returns a copy of the state with fn applied to every device. fn is
// called in diagram order, so a seeded fn gives the same state every run.
func (s State) Map(fn func(Device) Device) State {
	devices := make(map[ID]Device, len(s.devices))
	for _, id := range IDs() {
		d, ok := s.devices[id]
		if !ok {
			continue
		}
		next := fn(d)
		next.pid, next.config = d.pid, d.config
		devices[id] = next
	}
	return State{devices}
}
