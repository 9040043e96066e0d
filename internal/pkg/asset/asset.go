package asset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidDeviceID is returned for any id outside the fixed device catalogue.
var ErrInvalidDeviceID = errors.New("invalid device id")

// ID names one of the switchgear devices.
type ID string

// The ten devices of the single-line diagram.
const (
	Main1   ID = "main1"
	Main2   ID = "main2"
	Tie     ID = "tie"
	Feeder1 ID = "feeder1"
	Feeder2 ID = "feeder2"
	Gen1    ID = "gen1"
	Feeder4 ID = "feeder4"
	Feeder5 ID = "feeder5"
	Gen2    ID = "gen2"
	Feeder7 ID = "feeder7"
)

// IDs returns every device id in diagram order.
func IDs() []ID {
	return []ID{Main1, Main2, Tie, Feeder1, Feeder2, Gen1, Feeder4, Feeder5, Gen2, Feeder7}
}

// ParseID validates s against the device catalogue.
func ParseID(s string) (ID, error) {
	id := ID(s)
	if _, ok := catalogue[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}
	return id, nil
}

// BusID names a distribution bus.
type BusID string

// Distribution buses. The tie sits between them and belongs to neither.
const (
	NoBus BusID = ""
	BusA  BusID = "A"
	BusB  BusID = "B"
)

// Nominal voltage classes.
const (
	MainNominalVolt         = 13800.0
	DistributionNominalVolt = 4160.0
)

// Status is the mutable part of a device: breaker position and readings.
// KW is negative when the device supplies power.
type Status struct {
	Closed bool    `json:"Closed"`
	Volt   float64 `json:"Volt"`
	Amp    float64 `json:"Amp"`
	KW     float64 `json:"KW"`
}

// Config is the static description of a device.
type Config struct {
	ID   ID     `json:"ID"`
	Name string `json:"Name"`
	Role Role   `json:"Role"`
	Bus  BusID  `json:"Bus"`
}

// NominalVolt is the rated voltage of the device's class.
func (c Config) NominalVolt() float64 {
	return c.Role.NominalVolt()
}

// Device is a breaker (or the tie) in the diagram.
type Device struct {
	pid    uuid.UUID
	config Config
	status Status
}

// PID is a getter for the device process id
func (d Device) PID() uuid.UUID {
	return d.pid
}

// ID is a getter for the device catalogue id
func (d Device) ID() ID {
	return d.config.ID
}

// Name is the display label. Use PID internally.
func (d Device) Name() string {
	return d.config.Name
}

// Config is a getter for the device static config
func (d Device) Config() Config {
	return d.config
}

// Status is a getter for the device status
func (d Device) Status() Status {
	return d.status
}

// Closed reports the breaker position.
func (d Device) Closed() bool {
	return d.status.Closed
}

// WithStatus returns a copy of the device carrying s.
func (d Device) WithStatus(s Status) Device {
	d.status = s
	return d
}

type deviceJSON struct {
	PID uuid.UUID `json:"PID"`
	Config
	Status
}

// MarshalJSON flattens identity, config and status into one object.
func (d Device) MarshalJSON() ([]byte, error) {
	return json.Marshal(deviceJSON{d.pid, d.config, d.status})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (d *Device) UnmarshalJSON(b []byte) error {
	v := deviceJSON{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	d.pid, d.config, d.status = v.PID, v.Config, v.Status
	return nil
}

type entry struct {
	config Config
	status Status
}

// catalogue holds the configuration and initial status of every device.
var catalogue = map[ID]entry{
	Main1:   {Config{Main1, "Main 1", Main, BusA}, Status{true, MainNominalVolt, 245, 5850}},
	Main2:   {Config{Main2, "Main 2", Main, BusB}, Status{true, MainNominalVolt, 238, 5680}},
	Tie:     {Config{Tie, "Tie Breaker", TieBreaker, NoBus}, Status{}},
	Feeder1: {Config{Feeder1, "Feeder 1", Feeder, BusA}, Status{true, DistributionNominalVolt, 145, 1040}},
	Feeder2: {Config{Feeder2, "Feeder 2", Feeder, BusA}, Status{true, DistributionNominalVolt, 132, 950}},
	Gen1:    {Config{Gen1, "Generator 1", Generator, BusA}, Status{true, DistributionNominalVolt, -85, -610}},
	Feeder4: {Config{Feeder4, "Feeder 4", Feeder, BusA}, Status{true, DistributionNominalVolt, 156, 1120}},
	Feeder5: {Config{Feeder5, "Feeder 5", Feeder, BusB}, Status{true, DistributionNominalVolt, 168, 1210}},
	Gen2:    {Config{Gen2, "Generator 2", Generator, BusB}, Status{true, DistributionNominalVolt, -92, -660}},
	Feeder7: {Config{Feeder7, "Feeder 7", Feeder, BusB}, Status{true, DistributionNominalVolt, 138, 990}},
}

// Configs returns the static config of every device in diagram order.
func Configs() []Config {
	ids := IDs()
	cfgs := make([]Config, 0, len(ids))
	for _, id := range ids {
		cfgs = append(cfgs, catalogue[id].config)
	}
	return cfgs
}

// NewDevice returns a device in its initial position with a fresh PID.
func NewDevice(id ID) (Device, error) {
	e, ok := catalogue[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrInvalidDeviceID, id)
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return Device{}, err
	}

	return Device{pid, e.config, e.status}, nil
}
