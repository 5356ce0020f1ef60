package mqttconverter_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-telex/pkg/mqttconverter"
)

func TestDefaultMQTTClientConfig(t *testing.T) {
	cfg := mqttconverter.DefaultMQTTClientConfig()

	assert.Equal(t, 60*time.Second, cfg.KeepAlive)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, byte(1), cfg.QoS)
	assert.Equal(t, "telexd-", cfg.ClientIDPrefix)
}

func TestMQTTClientConfig_Validate(t *testing.T) {
	valid := func() *mqttconverter.MQTTClientConfig {
		cfg := mqttconverter.DefaultMQTTClientConfig()
		cfg.BrokerURL = "tcp://localhost:1883"
		cfg.Topics = []string{"telex/+/in"}
		cfg.Username = "station"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})
	t.Run("missing broker", func(t *testing.T) {
		cfg := valid()
		cfg.BrokerURL = ""
		assert.Error(t, cfg.Validate())
	})
	t.Run("missing topics", func(t *testing.T) {
		cfg := valid()
		cfg.Topics = nil
		assert.Error(t, cfg.Validate())
	})
	t.Run("anonymous needs opt in", func(t *testing.T) {
		cfg := valid()
		cfg.Username = ""
		assert.Error(t, cfg.Validate())
		cfg.AllowPublicBroker = true
		assert.NoError(t, cfg.Validate())
	})
	t.Run("bad qos", func(t *testing.T) {
		cfg := valid()
		cfg.QoS = 3
		assert.Error(t, cfg.Validate())
	})
}

func TestNewPahoClient_BadCAFile(t *testing.T) {
	cfg := mqttconverter.DefaultMQTTClientConfig()
	cfg.BrokerURL = "tls://localhost:8883"
	cfg.CACertFile = filepath.Join(t.TempDir(), "missing.pem")

	_, err := mqttconverter.NewPahoClient(cfg, zerolog.Nop())

	require.Error(t, err)
}
