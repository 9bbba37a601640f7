package report

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/robotalks/cpudbg/pkg/env"
	fx "github.com/robotalks/cpudbg/pkg/framework"
	"github.com/robotalks/cpudbg/pkg/report/mqtt"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
	"github.com/robotalks/cpudbg/pkg/report/stream"
	"github.com/robotalks/cpudbg/pkg/report/websocket"
)

// Config defines where records are published.
type Config struct {
	// ID identifies the receiver, defaults to the machine ID.
	ID          string
	Description string
	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebsocketAddr is the listen address serving frames over websocket.
	WebsocketAddr string
	// StreamURL is the peer receiving length prefixed frames.
	// e.g. tcp://host:port
	StreamURL string
	// Text prints records to stdout.
	Text bool
	// Format is the frame encoding: proto, cbor or json.
	Format string
}

var defaultConfig = Config{
	Text:   true,
	Format: msgs.EncodingProto,
}

func init() {
	if val := os.Getenv("CPUDBG_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Receiver ID")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Receiver description")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Serve frames over websocket on address")
	flag.StringVar(&defaultConfig.StreamURL, "stream", defaultConfig.StreamURL, "Stream frames to URL")
	flag.BoolVar(&defaultConfig.Text, "text", defaultConfig.Text, "Print frames to stdout")
	flag.StringVar(&defaultConfig.Format, "format", defaultConfig.Format, "Frame encoding: proto, cbor or json")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Outputs are the configured reporters and what must run for them.
type Outputs struct {
	Mux       Mux
	Runnables []fx.Runnable
	Registrar *mqtt.Registrar
}

// NewOutputs creates Outputs. sampler is announced in the meta, stats
// supplies counters published with each frame.
func (c *Config) NewOutputs(sampler string, stats func() interface{}) (*Outputs, error) {
	enc, err := msgs.EncodingByName(c.Format)
	if err != nil {
		return nil, err
	}
	out := &Outputs{}
	pub := &Publisher{Framer: &Framer{ReceiverID: c.ID}, Encoding: enc}

	if c.Text {
		out.Mux.Add(NewText(os.Stdout))
	}
	if c.MQTTBrokerURL != "" {
		if c.ID == "" {
			return nil, fmt.Errorf("receiver ID is required for MQTT")
		}
		meta := msgs.Meta{
			Description: c.Description,
			Encoding:    enc.Name(),
			Sampler:     sampler,
		}
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.ID, meta)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		reg.Stats = stats
		out.Registrar = reg
		out.Runnables = append(out.Runnables, reg)
		pub.Add(reg)
	}
	if c.WebsocketAddr != "" {
		server := websocket.NewServer(c.WebsocketAddr)
		out.Runnables = append(out.Runnables, server)
		pub.Add(server)
	}
	if c.StreamURL != "" {
		client, err := stream.NewClient(c.StreamURL)
		if err != nil {
			return nil, fmt.Errorf("create stream client error: %v", err)
		}
		out.Runnables = append(out.Runnables, client)
		pub.Add(client)
	}
	if len(pub.Writers) > 0 {
		out.Mux.Add(pub)
	}
	return out, nil
}

// MustNewOutputs creates Outputs and fails on error.
func (c *Config) MustNewOutputs(sampler string, stats func() interface{}) *Outputs {
	out, err := c.NewOutputs(sampler, stats)
	if err != nil {
		log.Fatalln(err)
	}
	return out
}
