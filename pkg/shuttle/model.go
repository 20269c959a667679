package shuttle

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrMissingCoordinates = errors.New("position without latitude or longitude")

// Position is the latest known location of the shuttle.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`

	ShuttleID int     `json:"shuttle_id,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// UnmarshalJSON rejects payloads that do not carry both coordinates, a
// zero value would otherwise put the shuttle at (0,0).
func (p *Position) UnmarshalJSON(data []byte) error {
	type position Position
	var wire struct {
		position
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Latitude == nil || wire.Longitude == nil {
		return ErrMissingCoordinates
	}

	*p = Position(wire.position)
	p.Latitude = *wire.Latitude
	p.Longitude = *wire.Longitude

	return nil
}

type Stop struct {
	Name      string  `json:"location_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DisplayName drops the description suffix the backend appends after " - "
func (s Stop) DisplayName() string {
	return strings.SplitN(s.Name, " - ", 2)[0]
}

type ActiveRoute struct {
	Active     bool   `json:"active"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	ETAMinutes *int   `json:"eta_minutes,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
}

type DistanceStats struct {
	Today       float64 `json:"today_distance"`
	CurrentTrip float64 `json:"current_trip_distance"`
	Total       float64 `json:"total_distance"`
}

// RouteRequest is the optional body of a new_route_request push. It is only
// used for logging, the active route is always re-fetched.
type RouteRequest struct {
	ID          int    `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	RequestedBy string `json:"requested_by"`
	Time        string `json:"time"`
}
