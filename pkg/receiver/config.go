package receiver

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/bus"
	"github.com/robotalks/cpudbg/pkg/bus/gpio"
	"github.com/robotalks/cpudbg/pkg/bus/sim"
	fx "github.com/robotalks/cpudbg/pkg/framework"
	"github.com/robotalks/cpudbg/pkg/indicator"
	"github.com/robotalks/cpudbg/pkg/queue"
	"github.com/robotalks/cpudbg/pkg/sampler"
	"github.com/robotalks/cpudbg/pkg/sampler/pio"
	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// Bus kinds
const (
	BusGPIO = "gpio"
	BusSim  = "sim"
)

// Sampler kinds
const (
	SamplerPolled = "polled"
	SamplerPIO    = "pio"
)

// Config defines the receive pipeline.
type Config struct {
	Bus     string
	Sampler string

	QueueSize         int
	FrameDelay        time.Duration
	SyncTimeout       time.Duration
	AccumulateTimeout time.Duration
	BitTimeout        time.Duration

	Pins gpio.PinNames
	// LEDs is a comma separated list of bargraph pins, MSB first.
	LEDs string

	// SimRate is the bit rate of the simulated CPU-under-test.
	SimRate int
	// SimSeed seeds the simulated CPU-under-test.
	SimSeed int64
}

var defaultConfig = Config{
	Bus:               BusGPIO,
	Sampler:           SamplerPolled,
	QueueSize:         queue.DefaultSize,
	FrameDelay:        DefaultFrameDelay,
	SyncTimeout:       DefaultSyncTimeout,
	AccumulateTimeout: DefaultAccumulateTimeout,
	BitTimeout:        sampler.DefaultBitTimeout,
	Pins: gpio.PinNames{
		CLK:  "GPIO21",
		CIDO: "GPIO20",
		CODI: "GPIO19",
		CS:   "GPIO18",
		CD:   "GPIO17",
	},
	SimRate: 5000,
	SimSeed: 1,
}

func init() {
	if val := os.Getenv("CPUDBG_BUS"); val != "" {
		defaultConfig.Bus = val
	}
	if val := os.Getenv("CPUDBG_SAMPLER"); val != "" {
		defaultConfig.Sampler = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Bus, "bus", defaultConfig.Bus, "Bus: gpio or sim")
	flag.StringVar(&defaultConfig.Sampler, "sampler", defaultConfig.Sampler, "Bit sampler: polled or pio")
	flag.IntVar(&defaultConfig.QueueSize, "queue-size", defaultConfig.QueueSize, "Receive queue size in bytes")
	flag.DurationVar(&defaultConfig.FrameDelay, "frame-delay", defaultConfig.FrameDelay, "Pause after each frame")
	flag.DurationVar(&defaultConfig.SyncTimeout, "sync-timeout", defaultConfig.SyncTimeout, "Give up looking for a frame start after, 0 to wait forever")
	flag.DurationVar(&defaultConfig.AccumulateTimeout, "accumulate-timeout", defaultConfig.AccumulateTimeout, "Give up collecting a frame after, 0 to wait forever")
	flag.DurationVar(&defaultConfig.BitTimeout, "bit-timeout", defaultConfig.BitTimeout, "Bus clock timeout inside a byte (polled sampler)")
	flag.StringVar(&defaultConfig.Pins.CLK, "pin-clk", defaultConfig.Pins.CLK, "CLK pin")
	flag.StringVar(&defaultConfig.Pins.CIDO, "pin-cido", defaultConfig.Pins.CIDO, "CIDO pin, empty if not wired")
	flag.StringVar(&defaultConfig.Pins.CODI, "pin-codi", defaultConfig.Pins.CODI, "CODI pin")
	flag.StringVar(&defaultConfig.Pins.CS, "pin-cs", defaultConfig.Pins.CS, "CS pin")
	flag.StringVar(&defaultConfig.Pins.CD, "pin-cd", defaultConfig.Pins.CD, "CD pin")
	flag.StringVar(&defaultConfig.LEDs, "leds", defaultConfig.LEDs, "Comma separated bargraph LED pins, MSB first")
	flag.IntVar(&defaultConfig.SimRate, "sim-rate", defaultConfig.SimRate, "Simulated bus bit rate")
	flag.Int64Var(&defaultConfig.SimSeed, "sim-seed", defaultConfig.SimSeed, "Simulated CPU seed")
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

// Pipeline is the assembled receiver: bus, sampler, queue and decoder.
type Pipeline struct {
	Lines       *bus.Lines
	Source      sampler.Source
	Receiver    *Receiver
	Decoder     *Decoder
	Bargraph    *indicator.Bargraph
	Transmitter *sim.Transmitter
}

// PipelineStats aggregates the counters of a Pipeline.
type PipelineStats struct {
	Sampler  sampler.Stats `json:"sampler"`
	Receiver Stats         `json:"receiver"`
	Decoder  DecoderStats  `json:"decoder"`
}

// NewPipeline creates a Pipeline reporting to reporter.
func (c *Config) NewPipeline(reporter Reporter) (*Pipeline, error) {
	if c.QueueSize < telemetry.FrameSize {
		return nil, fmt.Errorf("queue size %d is smaller than a frame (%d bytes)", c.QueueSize, telemetry.FrameSize)
	}
	p := &Pipeline{}
	switch c.Bus {
	case BusGPIO:
		lines, err := gpio.OpenLines(c.Pins)
		if err != nil {
			return nil, fmt.Errorf("open bus lines error: %v", err)
		}
		p.Lines = lines
	case BusSim:
		b := sim.NewBus()
		p.Transmitter = sim.NewTransmitter(b, sim.NewCPU(c.SimSeed))
		if c.SimRate > 0 {
			p.Transmitter.HalfPeriod = time.Second / time.Duration(c.SimRate*2)
		}
		p.Lines = b.Lines()
	default:
		return nil, fmt.Errorf("unknown bus %q", c.Bus)
	}

	if c.LEDs != "" {
		leds, err := gpio.OpenOutputs(strings.Split(c.LEDs, ","))
		if err != nil {
			return nil, fmt.Errorf("open LEDs error: %v", err)
		}
		p.Bargraph = indicator.NewBargraph(leds)
	}
	var activity indicator.Indicator
	if p.Bargraph != nil {
		activity = p.Bargraph
	}

	switch c.Sampler {
	case SamplerPolled:
		src := sampler.NewPolled(p.Lines)
		src.BitTimeout = c.BitTimeout
		src.Activity = activity
		p.Source = src
	case SamplerPIO:
		src := pio.NewSource(p.Lines)
		src.Activity = activity
		p.Source = src
	default:
		return nil, fmt.Errorf("unknown sampler %q", c.Sampler)
	}

	p.Receiver = New(queue.NewRing(c.QueueSize))
	p.Decoder = NewDecoder(p.Receiver, reporter)
	p.Decoder.FrameDelay = c.FrameDelay
	p.Decoder.SyncTimeout = c.SyncTimeout
	p.Decoder.AccumulateTimeout = c.AccumulateTimeout
	p.Decoder.Notifier = StateChangedFunc(func(ctx context.Context, state State) {
		glog.V(3).Infof("decoder: %s", state)
	})
	return p, nil
}

// MustNewPipeline creates a Pipeline and fails on error.
func (c *Config) MustNewPipeline(reporter Reporter) *Pipeline {
	p, err := c.NewPipeline(reporter)
	if err != nil {
		log.Fatalln(err)
	}
	return p
}

// Name implements framework.Named.
func (p *Pipeline) Name() string {
	return "receiver"
}

// Run implements framework.Runnable.
func (p *Pipeline) Run(ctx context.Context) error {
	runner := fx.NewRunnerWith(ctx)
	runner.Go(fx.NamedRun("sampler", fx.RunFunc(func(ctx context.Context) error {
		return p.Source.Run(ctx, p.Receiver)
	})))
	runner.Go(p.Decoder)
	if p.Bargraph != nil {
		runner.Go(p.Bargraph)
	}
	if p.Transmitter != nil {
		runner.Go(p.Transmitter)
	}
	return runner.Wait()
}

// Stats returns a snapshot of all counters.
func (p *Pipeline) Stats() PipelineStats {
	stats := PipelineStats{
		Receiver: p.Receiver.Stats(),
		Decoder:  p.Decoder.Stats(),
	}
	if s, ok := p.Source.(interface{ Stats() sampler.Stats }); ok {
		stats.Sampler = s.Stats()
	}
	return stats
}
