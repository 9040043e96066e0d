/*
bus.go derives bus energization from breaker positions. Nothing here is
stored: every call resolves against the state it is handed.
*/

package bus

import (
	"github.com/ohowland/switchgear/internal/pkg/asset"
)

// Energization is the derived state of the three buses of the diagram.
type Energization struct {
	MainBus bool `json:"MainBus"`
	BusA    bool `json:"BusA"`
	BusB    bool `json:"BusB"`
}

// Resolve computes bus energization from the closed flags of the mains, the
// tie and the generators. A bus is live when one of its own sources is
// closed, or when the tie is closed and a source of the adjacent bus is.
func Resolve(s asset.State) Energization {
	main1 := s.Closed(asset.Main1)
	main2 := s.Closed(asset.Main2)
	tie := s.Closed(asset.Tie)
	gen1 := s.Closed(asset.Gen1)
	gen2 := s.Closed(asset.Gen2)

	return Energization{
		MainBus: main1 || main2,
		BusA:    main1 || (tie && main2) || gen1 || (tie && gen2),
		BusB:    main2 || (tie && main1) || gen2 || (tie && gen1),
	}
}

// Bus returns the energization of a distribution bus. NoBus is never live.
func (e Energization) Bus(b asset.BusID) bool {
	switch b {
	case asset.BusA:
		return e.BusA
	case asset.BusB:
		return e.BusB
	default:
		return false
	}
}

// Energized reports whether device id carries power for display purposes.
// A closed feeder on a dead bus is not energized; mains and generators are
// sources and are live whenever closed. The tie is live when closed and
// either side is.
func Energized(s asset.State, id asset.ID) (bool, error) {
	d, err := s.Device(id)
	if err != nil {
		return false, err
	}
	return energized(d, Resolve(s)), nil
}

// EnergizedDevices resolves Energized for every device at once.
func EnergizedDevices(s asset.State) map[asset.ID]bool {
	e := Resolve(s)
	devices := s.Devices()
	live := make(map[asset.ID]bool, len(devices))
	for _, d := range devices {
		live[d.ID()] = energized(d, e)
	}
	return live
}

func energized(d asset.Device, e Energization) bool {
	if !d.Closed() {
		return false
	}

	cfg := d.Config()
	switch cfg.Role {
	case asset.Main, asset.Generator:
		return true
	case asset.TieBreaker:
		return e.BusA || e.BusB
	default:
		return e.Bus(cfg.Bus)
	}
}
