package mapview

import (
	"sync"

	"golang.org/x/exp/slices"
)

const (
	DefaultZoom  = 16
	ShuttlePopup = "Shuttle UISI"
)

// Campus centre and the parking spot the shuttle marker starts on
var (
	DefaultCenter  = LatLng{Lat: -7.17336, Lng: 112.64452}
	DefaultShuttle = LatLng{Lat: -7.1650, Lng: 112.6285}
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Marker struct {
	Name     string `json:"name"`
	Position LatLng `json:"position"`
	Popup    string `json:"popup,omitempty"`
}

// View is the map widget the dashboard draws on
type View interface {
	Init()
	SetShuttlePosition(position LatLng)
	AddStopMarker(name string, position LatLng)
	ShuttlePosition() LatLng
	Snapshot() State
}

type State struct {
	Initialized bool     `json:"initialized"`
	Center      LatLng   `json:"center"`
	Zoom        int      `json:"zoom"`
	Shuttle     Marker   `json:"shuttle"`
	Stops       []Marker `json:"stops"`
}

// Map keeps the map widget state in memory
type Map struct {
	mu    sync.RWMutex
	state State
}

func New() *Map {
	return &Map{}
}

func (m *Map) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = State{
		Initialized: true,
		Center:      DefaultCenter,
		Zoom:        DefaultZoom,
		Shuttle: Marker{
			Name:     "shuttle",
			Position: DefaultShuttle,
			Popup:    ShuttlePopup,
		},
	}
}

// SetShuttlePosition moves the shuttle marker and pans the view onto it
func (m *Map) SetShuttlePosition(position LatLng) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Shuttle.Position = position
	m.state.Center = position
}

func (m *Map) AddStopMarker(name string, position LatLng) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Stops = append(m.state.Stops, Marker{
		Name:     name,
		Position: position,
		Popup:    name,
	})
}

func (m *Map) ShuttlePosition() LatLng {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Shuttle.Position
}

func (m *Map) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := m.state
	state.Stops = slices.Clone(m.state.Stops)

	return state
}
