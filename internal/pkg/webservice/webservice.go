package webservice

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/bus"
	"github.com/ohowland/switchgear/internal/pkg/msg"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"go.uber.org/zap"
)

const (
	contentType  = "application/json; charset=UTF-8"
	writeTimeout = 5 * time.Second
)

// Controller is the system surface the API serves.
type Controller interface {
	msg.Publisher
	Snapshot() root.Snapshot
	Toggle(asset.ID) (asset.Device, error)
	Set(asset.ID, bool) (asset.Device, error)
}

// BreakerControl is the body of a PUT on a device.
type BreakerControl struct {
	Closed *bool `json:"Closed"`
}

// BusStatus is the energization view of the diagram.
type BusStatus struct {
	Buses     bus.Energization  `json:"Buses"`
	Energized map[asset.ID]bool `json:"Energized"`
}

// ErrorResponse is written with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"Error"`
}

// App serves the switchgear API.
type App struct {
	sys      Controller
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New returns an App serving sys.
func New(sys Controller) *App {
	return &App{
		sys: sys,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: zap.L().Named("webservice"),
	}
}

// Router registers every route of the API.
func (a *App) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(LoggingMiddleware)

	router.HandleFunc("/", a.BaseHandler).Methods(http.MethodGet)
	router.HandleFunc("/devices", a.DevicesHandler).Methods(http.MethodGet)
	router.HandleFunc("/devices/{id}", a.DeviceHandler).Methods(http.MethodGet, http.MethodPut)
	router.HandleFunc("/devices/{id}/toggle", a.ToggleHandler).Methods(http.MethodPost)
	router.HandleFunc("/buses", a.BusesHandler).Methods(http.MethodGet)
	router.HandleFunc("/summary", a.SummaryHandler).Methods(http.MethodGet)
	router.HandleFunc("/history", a.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/snapshot", a.SnapshotHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws", a.StreamHandler).Methods(http.MethodGet)
	return router
}

// LoggingMiddleware logs each request URI.
func LoggingMiddleware(next http.Handler) http.Handler {
	logger := zap.L().Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(r.RequestURI, zap.String("method", r.Method))
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) BaseHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, struct {
		Name string `json:"Name"`
	}{"switchgear"})
}

func (a *App) DevicesHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.sys.Snapshot().Devices)
}

func (a *App) DeviceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := asset.ParseID(mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := a.sys.Snapshot().Device(id)
		if err != nil {
			a.writeError(w, http.StatusNotFound, err)
			return
		}
		a.writeJSON(w, http.StatusOK, d)

	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		ctrl := BreakerControl{}
		if err := json.Unmarshal(body, &ctrl); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		if ctrl.Closed == nil {
			a.writeError(w, http.StatusBadRequest, errors.New("missing field Closed"))
			return
		}

		d, err := a.sys.Set(id, *ctrl.Closed)
		if err != nil {
			a.writeError(w, statusFor(err), err)
			return
		}
		a.writeJSON(w, http.StatusOK, d)
	}
}

func (a *App) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := asset.ParseID(mux.Vars(r)["id"])
	if err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}

	d, err := a.sys.Toggle(id)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	a.writeJSON(w, http.StatusOK, d)
}

func (a *App) BusesHandler(w http.ResponseWriter, r *http.Request) {
	snap := a.sys.Snapshot()
	a.writeJSON(w, http.StatusOK, BusStatus{
		Buses:     snap.Buses,
		Energized: snap.Energized,
	})
}

func (a *App) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.sys.Snapshot().Summary)
}

func (a *App) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.sys.Snapshot().History)
}

func (a *App) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.sys.Snapshot())
}

// StreamHandler upgrades to a WebSocket and writes one JSON text frame per
// published snapshot until either side goes away.
func (a *App) StreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	pid := uuid.New()
	inbox, err := a.sys.Subscribe(pid, msg.Status)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}
	defer a.sys.Unsubscribe(pid)

	// drain reads so close frames are seen
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	a.logger.Debug("stream opened", zap.String("subscriber", pid.String()))
	for {
		select {
		case m, ok := <-inbox:
			if !ok {
				return
			}
			data, err := json.Marshal(m.Payload())
			if err != nil {
				a.logger.Warn("marshal snapshot", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			a.logger.Debug("stream closed", zap.String("subscriber", pid.String()))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func statusFor(err error) int {
	if errors.Is(err, asset.ErrInvalidDeviceID) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (a *App) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("malformed JSON", zap.Error(err))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		a.logger.Debug("write response", zap.Error(err))
	}
}

func (a *App) writeError(w http.ResponseWriter, code int, err error) {
	a.writeJSON(w, code, ErrorResponse{Error: err.Error()})
}
