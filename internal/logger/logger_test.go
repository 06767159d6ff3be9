package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("prod", "debug", &buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("handle", "h-1").Info("reminder scheduled")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "reminder scheduled", line["message"])
	assert.Equal(t, "h-1", line["handle"])
	assert.Contains(t, line, "timestamp")
}

func TestNew_DevWritesKeyValue(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("dev", "nonsense", &buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.WithField("status", 201).Info("request")
	assert.Contains(t, buf.String(), "status=201")
	assert.Contains(t, buf.String(), `msg=request`)
}
