package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvDuration(t *testing.T) {
	interval := 10 * time.Second

	assert.NoError(t, EnvDuration(map[string]string{}, "INTERVAL", &interval))
	assert.Equal(t, 10*time.Second, interval)

	assert.NoError(t, EnvDuration(map[string]string{"INTERVAL": "3s"}, "INTERVAL", &interval))
	assert.Equal(t, 3*time.Second, interval)

	assert.Error(t, EnvDuration(map[string]string{"INTERVAL": "soon"}, "INTERVAL", &interval))
	assert.Error(t, EnvDuration(map[string]string{"INTERVAL": "-1s"}, "INTERVAL", &interval))
	assert.Equal(t, 3*time.Second, interval)
}

func TestEnvInt(t *testing.T) {
	database := 0

	assert.NoError(t, EnvInt(map[string]string{"DB": "2"}, "DB", &database))
	assert.Equal(t, 2, database)
	assert.Error(t, EnvInt(map[string]string{"DB": "two"}, "DB", &database))
}

func TestEnvString(t *testing.T) {
	listen := ":8080"

	EnvString(map[string]string{"LISTEN": "  "}, "LISTEN", &listen)
	assert.Equal(t, ":8080", listen)

	EnvString(map[string]string{"LISTEN": ":9000"}, "LISTEN", &listen)
	assert.Equal(t, ":9000", listen)
}
