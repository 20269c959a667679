package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/travigo/shuttletrack/pkg/mapview"
	"github.com/travigo/shuttletrack/pkg/shuttle"
)

const (
	ShuttleStatusUnknown       = "unknown"
	ShuttleStatusActive        = "active"
	ShuttleStatusWaitingForGPS = "waiting for GPS"

	AlertInfo    = "info"
	AlertWarning = "warning"

	connectedMessage    = "Connected to server - Real-time updates active"
	disconnectedMessage = "Disconnected from server - Reconnecting..."
	stopWaitingMessage  = "Waiting for shuttle data..."
	noETA               = "-"
)

type RoutePanel struct {
	Visible bool   `json:"visible" groups:"basic"`
	From    string `json:"from,omitempty" groups:"basic"`
	To      string `json:"to,omitempty" groups:"basic"`
	ETA     string `json:"eta,omitempty" groups:"basic"`
}

type ConnectionAlert struct {
	Level   string `json:"level" groups:"basic"`
	Message string `json:"message" groups:"basic"`
}

type StopRow struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	ETA   string `json:"eta"`
}

// Snapshot is everything the dashboard currently displays
type Snapshot struct {
	ShuttleStatus string          `json:"shuttle_status" groups:"basic"`
	StatusText    string          `json:"status_text" groups:"basic"`
	Speed         string          `json:"speed" groups:"basic"`
	TodayDistance string          `json:"today_distance" groups:"basic"`
	ActiveRoute   RoutePanel      `json:"active_route" groups:"basic"`
	Connection    ConnectionAlert `json:"connection" groups:"basic"`
	UpdatedAt     time.Time       `json:"updated_at" groups:"basic"`

	Stops []StopRow     `json:"stops"`
	Map   mapview.State `json:"map"`
}

// Board holds the status widgets next to the map
type Board struct {
	Map mapview.View

	mu    sync.RWMutex
	state Snapshot
}

func NewBoard(view mapview.View) *Board {
	return &Board{
		Map: view,
		state: Snapshot{
			ShuttleStatus: ShuttleStatusUnknown,
			Speed:         "0",
			TodayDistance: "0.0",
			ActiveRoute:   RoutePanel{ETA: noETA},
		},
	}
}

func (b *Board) update(apply func(state *Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	apply(&b.state)
	b.state.UpdatedAt = time.Now()
}

func (b *Board) RenderStops(stops []shuttle.Stop) {
	rows := make([]StopRow, 0, len(stops))
	for i, stop := range stops {
		name := stop.DisplayName()

		rows = append(rows, StopRow{
			Index: i + 1,
			Name:  name,
			ETA:   stopWaitingMessage,
		})
		b.Map.AddStopMarker(name, mapview.LatLng{Lat: stop.Latitude, Lng: stop.Longitude})
	}

	b.update(func(state *Snapshot) {
		state.Stops = rows
	})
}

func (b *Board) RenderDistance(today float64) {
	b.update(func(state *Snapshot) {
		state.TodayDistance = fmt.Sprintf("%.1f", today)
	})
}

func (b *Board) RenderActiveRoute(route shuttle.ActiveRoute) {
	panel := RoutePanel{Visible: false, ETA: noETA}
	if route.Active {
		panel = RoutePanel{
			Visible: true,
			From:    route.From,
			To:      route.To,
			ETA:     noETA,
		}
		if route.ETAMinutes != nil && *route.ETAMinutes != 0 {
			panel.ETA = strconv.Itoa(*route.ETAMinutes)
		}
	}

	b.update(func(state *Snapshot) {
		state.ActiveRoute = panel
	})
}

// RenderPosition moves the marker onto the shuttle and marks it active
func (b *Board) RenderPosition(position shuttle.Position) {
	b.Map.SetShuttlePosition(mapview.LatLng{Lat: position.Latitude, Lng: position.Longitude})

	b.update(func(state *Snapshot) {
		state.Speed = strconv.Itoa(int(math.Round(position.Speed)))
		state.ShuttleStatus = ShuttleStatusActive
		state.StatusText = "Shuttle active"
	})
}

func (b *Board) RenderWaitingForGPS() {
	b.update(func(state *Snapshot) {
		state.ShuttleStatus = ShuttleStatusWaitingForGPS
		state.StatusText = "Waiting for GPS..."
	})
}

func (b *Board) RenderConnected() {
	b.update(func(state *Snapshot) {
		state.Connection = ConnectionAlert{Level: AlertInfo, Message: connectedMessage}
	})
}

func (b *Board) RenderDisconnected() {
	b.update(func(state *Snapshot) {
		state.Connection = ConnectionAlert{Level: AlertWarning, Message: disconnectedMessage}
	})
}

// Snapshot returns a deep copy safe to hand to other goroutines
func (b *Board) Snapshot() Snapshot {
	var snapshot Snapshot

	b.mu.RLock()
	if err := copier.CopyWithOption(&snapshot, &b.state, copier.Option{DeepCopy: true}); err != nil {
		snapshot = b.state
		snapshot.Stops = append([]StopRow(nil), b.state.Stops...)
	}
	snapshot.UpdatedAt = b.state.UpdatedAt
	b.mu.RUnlock()

	snapshot.Map = b.Map.Snapshot()

	return snapshot
}
