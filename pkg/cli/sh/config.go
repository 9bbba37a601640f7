package sh

import (
	"flag"
	"os"

	"github.com/robotalks/cpudbg/pkg/report/mqtt"
)

// Config defines the monitor options.
type Config struct {
	// MQTTBrokerURL specifies the MQTT broker receivers publish to.
	MQTTBrokerURL string
	// ID is the receiver to connect on start.
	ID string
	// HistorySize is the number of frames kept per session.
	HistorySize int
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/" + mqtt.DefaultTopicPrefix,
	HistorySize:   64,
}

func init() {
	if val := os.Getenv("CPUDBG_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Receiver ID to connect")
	flag.IntVar(&defaultConfig.HistorySize, "history", defaultConfig.HistorySize, "Frames kept for history")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewMonitor creates a connected Monitor.
func (c *Config) NewMonitor() (*mqtt.Monitor, error) {
	m, err := mqtt.NewMonitor(c.MQTTBrokerURL)
	if err != nil {
		return nil, err
	}
	if err = m.Connect(); err != nil {
		return nil, err
	}
	return m, nil
}
