/*
hmi is a terminal view of the single-line diagram. It lists the devices with
their readings, refreshes on every published snapshot and toggles the selected
breaker on Enter.
*/

package hmi

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell"
	"github.com/google/uuid"
	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/msg"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const title = " Switchgear "

// Header is the first row of the device table.
var Header = []string{"Device", "Breaker", "Volt", "Amp", "kW", "Energized"}

// Controller is the system surface the HMI drives.
type Controller interface {
	msg.Publisher
	Snapshot() root.Snapshot
	Toggle(asset.ID) (asset.Device, error)
}

// HMI is the terminal application.
type HMI struct {
	sys    Controller
	app    *tview.Application
	table  *tview.Table
	footer *tview.TextView
	logger *zap.Logger
}

// New lays out the view for sys. Nothing is drawn until Run.
func New(sys Controller) *HMI {
	h := &HMI{
		sys:    sys,
		app:    tview.NewApplication(),
		table:  tview.NewTable(),
		footer: tview.NewTextView(),
		logger: zap.L().Named("hmi"),
	}

	h.table.SetFixed(1, 1).
		SetBorders(false).
		SetSelectable(true, false).
		SetSeparator(' ').
		SetSelectedFunc(func(row, column int) {
			h.toggle(row)
		})
	h.table.SetBorder(true).SetTitle(title)

	h.footer.SetTextColor(tcell.ColorWhite).
		SetBorder(true)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(h.table, 0, 1, true).
		AddItem(h.footer, 4, 0, false)

	h.app.SetRoot(layout, true).
		SetFocus(h.table).
		SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			if event.Rune() == 'q' {
				h.app.Stop()
				return nil
			}
			return event
		})
	return h
}

// Run draws the view and blocks until the user quits or ctx is done.
func (h *HMI) Run(ctx context.Context) error {
	pid := uuid.New()
	inbox, err := h.sys.Subscribe(pid, msg.Status)
	if err != nil {
		return err
	}
	defer h.sys.Unsubscribe(pid)

	h.render(h.sys.Snapshot())

	stopped := make(chan struct{})
	defer close(stopped)
	go h.forward(ctx, inbox, stopped, func(f func()) {
		h.app.QueueUpdateDraw(f)
	})

	return h.app.Run()
}

// forward queues a redraw per snapshot until the inbox closes, ctx is done or
// the application has stopped. Nothing drains the draw queue once the
// application is stopped, so stopped is checked before every queue.
func (h *HMI) forward(ctx context.Context, inbox <-chan msg.Msg, stopped <-chan struct{}, queue func(func())) {
	for {
		select {
		case m, ok := <-inbox:
			if !ok {
				return
			}
			snap, ok := m.Payload().(root.Snapshot)
			if !ok {
				continue
			}
			select {
			case <-stopped:
				return
			default:
			}
			queue(func() {
				h.render(snap)
			})
		case <-ctx.Done():
			h.app.Stop()
			return
		case <-stopped:
			return
		}
	}
}

func (h *HMI) toggle(row int) {
	ids := asset.IDs()
	if row < 1 || row > len(ids) {
		return
	}
	if _, err := h.sys.Toggle(ids[row-1]); err != nil {
		h.logger.Warn("toggle failed", zap.Error(err))
	}
}

func (h *HMI) render(snap root.Snapshot) {
	for column, text := range Header {
		h.table.SetCell(0, column, tview.NewTableCell(text).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}

	for i, d := range snap.Devices {
		energized := snap.Energized[d.ID()]
		for column, text := range Row(d, energized) {
			color := tcell.ColorWhite
			switch {
			case column == 0:
				color = tcell.ColorDarkCyan
			case column == 1 && d.Closed():
				color = tcell.ColorRed
			case column == 1:
				color = tcell.ColorGreen
			}
			align := tview.AlignRight
			if column < 2 {
				align = tview.AlignLeft
			}
			h.table.SetCell(i+1, column, tview.NewTableCell(text).
				SetTextColor(color).
				SetAlign(align).
				SetSelectable(true))
		}
	}

	h.footer.SetText(Footer(snap))
}

// Row formats one device for the table.
func Row(d asset.Device, energized bool) []string {
	st := d.Status()
	state := "OPEN"
	if st.Closed {
		state = "CLOSED"
	}
	return []string{
		d.Name(),
		state,
		fmt.Sprintf("%.0f", st.Volt),
		fmt.Sprintf("%.1f", st.Amp),
		fmt.Sprintf("%.1f", st.KW),
		live(energized),
	}
}

// Footer formats the bus and summary line.
func Footer(snap root.Snapshot) string {
	return fmt.Sprintf("Main Bus: %s  Bus A: %s  Bus B: %s\nNet: %.1f kW  Generation: %.1f kW  Closed: %d/%d  (enter toggles, q quits)",
		live(snap.Buses.MainBus),
		live(snap.Buses.BusA),
		live(snap.Buses.BusB),
		snap.Summary.NetKW,
		snap.Summary.GenerationKW,
		snap.Summary.ClosedCount,
		snap.Summary.DeviceCount,
	)
}

func live(b bool) string {
	if b {
		return "LIVE"
	}
	return "DEAD"
}
