// Package mqttconverter is an MQTT telex source for stations that forward
// their teleprinter traffic to a broker.
package mqttconverter

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTClientConfig holds the broker connection and subscription settings.
type MQTTClientConfig struct {
	// BrokerURL is the full broker URL, e.g. "tls://mqtt.example.com:8883".
	BrokerURL string `mapstructure:"broker_url"`
	// Topics are the topic filters carrying telexes, e.g. "telex/+/in".
	Topics []string `mapstructure:"topics"`
	QoS    byte     `mapstructure:"qos"`
	// ClientIDPrefix gets a unique suffix, since brokers require distinct client IDs.
	ClientIDPrefix string `mapstructure:"client_id_prefix"`
	// AllowPublicBroker permits connecting without credentials.
	AllowPublicBroker  bool          `mapstructure:"allow_public_broker"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	KeepAlive          time.Duration `mapstructure:"keep_alive"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	ReconnectWaitMax   time.Duration `mapstructure:"reconnect_wait_max"`
	CACertFile         string        `mapstructure:"ca_cert_file"`
	ClientCertFile     string        `mapstructure:"client_cert_file"`
	ClientKeyFile      string        `mapstructure:"client_key_file"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// DefaultMQTTClientConfig returns the connection defaults.
func DefaultMQTTClientConfig() *MQTTClientConfig {
	return &MQTTClientConfig{
		QoS:              1,
		KeepAlive:        60 * time.Second,
		ConnectTimeout:   10 * time.Second,
		ReconnectWaitMax: 120 * time.Second,
		ClientIDPrefix:   "telexd-",
	}
}

// Validate checks the settings a consumer cannot run without.
func (c *MQTTClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("MQTT broker URL is required")
	}
	if len(c.Topics) == 0 {
		return errors.New("at least one MQTT topic is required")
	}
	if c.Username == "" && !c.AllowPublicBroker {
		return errors.New("MQTT credentials are required unless allow_public_broker is set")
	}
	if c.QoS > 2 {
		return fmt.Errorf("invalid MQTT QoS %d", c.QoS)
	}
	return nil
}

// NewPahoClient builds an unconnected Paho client from cfg. Sessions are
// persistent so subscriptions survive reconnects.
func NewPahoClient(cfg *MQTTClientConfig, logger zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(fmt.Sprintf("%s%d", cfg.ClientIDPrefix, time.Now().UnixNano()%1000000))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(cfg.ReconnectWaitMax)
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error().Err(err).Msg("Paho client lost MQTT connection.")
	})

	if strings.HasPrefix(strings.ToLower(cfg.BrokerURL), "tls://") || strings.HasPrefix(strings.ToLower(cfg.BrokerURL), "ssl://") {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}
	return mqtt.NewClient(opts), nil
}

func newTLSConfig(cfg *MQTTClientConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify, MinVersion: tls.VersionTLS12}
	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert file %s: %w", cfg.CACertFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA cert from %s", cfg.CACertFile)
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate/key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
