package shuttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocationUpdate(t *testing.T) {
	message, err := ParseChannelMessage([]byte(`{"type":"location_update","data":{"shuttle_id":1,"latitude":1.0,"longitude":2.0,"speed":3.0,"heading":90,"timestamp":"2025-01-01T08:00:00"}}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTypeLocationUpdate, message.Type)

	position, err := message.Position()
	require.NoError(t, err)
	assert.Equal(t, 1.0, position.Latitude)
	assert.Equal(t, 2.0, position.Longitude)
	assert.Equal(t, 3.0, position.Speed)
	assert.Equal(t, 90.0, position.Heading)
	assert.Equal(t, 1, position.ShuttleID)
}

func TestParseRouteRequest(t *testing.T) {
	message, err := ParseChannelMessage([]byte(`{"type":"new_route_request","data":{"id":7,"from":"Gedung A","to":"Gedung B","requested_by":"wa","time":"now"}}`))
	require.NoError(t, err)

	request, ok := message.RouteRequest()
	require.True(t, ok)
	assert.Equal(t, 7, request.ID)
	assert.Equal(t, "Gedung B", request.To)

	bare, err := ParseChannelMessage([]byte(`{"type":"new_route_request"}`))
	require.NoError(t, err)
	_, ok = bare.RouteRequest()
	assert.False(t, ok)
}

func TestParseRejectsBadFrames(t *testing.T) {
	_, err := ParseChannelMessage([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseChannelMessage([]byte(`{"type":"something_else"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	message, err := ParseChannelMessage([]byte(`{"type":"location_update"}`))
	require.NoError(t, err)
	_, err = message.Position()
	assert.Error(t, err)

	for _, frame := range []string{
		`{"type":"location_update","data":{}}`,
		`{"type":"location_update","data":{"speed":5}}`,
		`{"type":"location_update","data":{"latitude":1.0,"speed":5}}`,
		`{"type":"location_update","data":{"latitude":null,"longitude":2.0}}`,
	} {
		message, err := ParseChannelMessage([]byte(frame))
		require.NoError(t, err, frame)

		_, err = message.Position()
		assert.ErrorIs(t, err, ErrMissingCoordinates, frame)
	}
}

func TestPositionKeepsZeroCoordinates(t *testing.T) {
	message, err := ParseChannelMessage([]byte(`{"type":"location_update","data":{"latitude":0,"longitude":0,"speed":1}}`))
	require.NoError(t, err)

	position, err := message.Position()
	require.NoError(t, err)
	assert.Equal(t, Position{Speed: 1}, position)
}

func TestStopDisplayName(t *testing.T) {
	assert.Equal(t, "Gedung A", Stop{Name: "Gedung A - Rektorat"}.DisplayName())
	assert.Equal(t, "Parkiran", Stop{Name: "Parkiran"}.DisplayName())
}
