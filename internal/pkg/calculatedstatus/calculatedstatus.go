package calculatedstatus

import (
	"math"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/samber/lo"
)

// Status aggregates the readings of every device in a state.
type Status struct {
	NetKW        float64 `json:"NetKW"`
	GenerationKW float64 `json:"GenerationKW"`
	ClosedCount  int     `json:"ClosedCount"`
	DeviceCount  int     `json:"DeviceCount"`
}

// Calculate sums signed power over closed devices, generator magnitude over
// closed generators, and counts closed breakers.
func Calculate(s asset.State) Status {
	closed := lo.Filter(s.Devices(), func(d asset.Device, _ int) bool {
		return d.Closed()
	})

	generators := lo.Filter(closed, func(d asset.Device, _ int) bool {
		return d.Config().Role == asset.Generator
	})

	return Status{
		NetKW: lo.SumBy(closed, func(d asset.Device) float64 {
			return d.Status().KW
		}),
		GenerationKW: lo.SumBy(generators, func(d asset.Device) float64 {
			return math.Abs(d.Status().KW)
		}),
		ClosedCount: len(closed),
		DeviceCount: s.Len(),
	}
}
