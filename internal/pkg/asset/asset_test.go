package asset

import (
	"encoding/json"
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestNewState(t *testing.T) {
	s, err := NewState()
	assert.NilError(t, err)
	assert.Equal(t, s.Len(), 10)

	for _, d := range s.Devices() {
		if d.ID() == Tie {
			assert.Assert(t, !d.Closed())
			assert.Equal(t, d.Status(), Status{})
			continue
		}
		assert.Assert(t, d.Closed(), "%v should start closed", d.ID())
		assert.Equal(t, d.Status().Volt, d.Config().NominalVolt())
	}
}

func TestDevicesOrder(t *testing.T) {
	s, err := NewState()
	assert.NilError(t, err)

	devices := s.Devices()
	for i, id := range IDs() {
		assert.Equal(t, devices[i].ID(), id)
	}
}

func TestUniquePIDs(t *testing.T) {
	s, err := NewState()
	assert.NilError(t, err)

	seen := make(map[string]bool)
	for _, d := range s.Devices() {
		assert.Assert(t, !seen[d.PID().String()])
		seen[d.PID().String()] = true
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("gen2")
	assert.NilError(t, err)
	assert.Equal(t, id, Gen2)

	_, err = ParseID("feeder3")
	assert.Assert(t, errors.Is(err, ErrInvalidDeviceID))
}

func TestWithDoesNotModifyReceiver(t *testing.T) {
	s, err := NewState()
	assert.NilError(t, err)

	d, err := s.Device(Main1)
	assert.NilError(t, err)

	next, err := s.With(d.WithStatus(Status{}))
	assert.NilError(t, err)

	assert.Assert(t, s.Closed(Main1))
	assert.Assert(t, !next.Closed(Main1))
}

func TestWithUnknownDevice(t *testing.T) {
	s, err := NewState()
	assert.NilError(t, err)

	_, err = s.With(Device{config: Config{ID: "feeder9"}})
	assert.Assert(t, errors.Is(err, ErrInvalidDeviceID))
}

func TestMapKeepsIdentity(t *testing.T) {
	s, err := NewState()
	assert.NilError(t, err)

	next := s.Map(func(d Device) Device {
		return Device{status: Status{Closed: true}}
	})

	for _, id := range IDs() {
		before, _ := s.Device(id)
		after, _ := next.Device(id)
		assert.Equal(t, before.PID(), after.PID())
		assert.Equal(t, before.Config(), after.Config())
		assert.Assert(t, after.Closed())
	}
}

func TestRoleNominalVolt(t *testing.T) {
	assert.Equal(t, Main.NominalVolt(), 13800.0)
	assert.Equal(t, TieBreaker.NominalVolt(), 4160.0)
	assert.Equal(t, Feeder.NominalVolt(), 4160.0)
	assert.Equal(t, Generator.NominalVolt(), 4160.0)
}

func TestDeviceJSON(t *testing.T) {
	d, err := NewDevice(Gen1)
	assert.NilError(t, err)

	b, err := json.Marshal(d)
	assert.NilError(t, err)

	fields := make(map[string]interface{})
	assert.NilError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, fields["ID"], "gen1")
	assert.Equal(t, fields["Role"], "generator")
	assert.Equal(t, fields["Bus"], "A")
	assert.Equal(t, fields["KW"], -610.0)
	assert.Check(t, is.Contains(fields, "PID"))

	decoded := Device{}
	assert.NilError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, decoded, d)
}
