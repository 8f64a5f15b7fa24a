// Package env provides configurations of the host tools.
package env

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
	"github.com/robotalks/purpledrop.go/pkg/l0/port"
)

// Config provides common options to connect a device.
type Config struct {
	// DeviceID identifies the device on MQTT.
	DeviceID    string
	Description string
	Port        port.Config
	IdleTimeout time.Duration

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
}

var (
	defaultConfig = Config{
		Port: port.Config{
			Baud:        port.DefaultBaud,
			ReadTimeout: 100 * time.Millisecond,
		},
		IdleTimeout:   comm.DefaultIdleTimeout,
		MQTTBrokerURL: "mqtt://localhost:1883/purpledrop/",
	}

	configFile string
)

func init() {
	if val := os.Getenv("PURPLEDROP_DEVICE"); val != "" {
		defaultConfig.Port.Device = val
	}
	if val := os.Getenv("PURPLEDROP_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Port.Baud = baud
		}
	}
	if val := os.Getenv("PURPLEDROP_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("PURPLEDROP_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "TOML config file.")
	flag.StringVar(&defaultConfig.Port.Device, "device", defaultConfig.Port.Device, "Serial device or tcp:// ws:// URL.")
	flag.IntVar(&defaultConfig.Port.Baud, "baud", defaultConfig.Port.Baud, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.Port.ReadTimeout, "read-timeout", defaultConfig.Port.ReadTimeout, "Serial read timeout.")
	flag.DurationVar(&defaultConfig.IdleTimeout, "idle-timeout", defaultConfig.IdleTimeout, "Discard partial frame after idle.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, machine ID by default.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load creates a Config from defaults, the -config file and flags,
// flags explicitly set take precedence over the file.
func Load() (*Config, error) {
	conf := NewConfig()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
		flag.Visit(func(f *flag.Flag) {
			if fn := flagOverrides[f.Name]; fn != nil {
				fn(conf, &defaultConfig)
			}
		})
	}
	if conf.DeviceID == "" {
		conf.DeviceID = MachineID()
	}
	return conf, nil
}

var flagOverrides = map[string]func(dst, src *Config){
	"device":       func(dst, src *Config) { dst.Port.Device = src.Port.Device },
	"baud":         func(dst, src *Config) { dst.Port.Baud = src.Port.Baud },
	"read-timeout": func(dst, src *Config) { dst.Port.ReadTimeout = src.Port.ReadTimeout },
	"idle-timeout": func(dst, src *Config) { dst.IdleTimeout = src.IdleTimeout },
	"mqtt":         func(dst, src *Config) { dst.MQTTBrokerURL = src.MQTTBrokerURL },
	"id":           func(dst, src *Config) { dst.DeviceID = src.DeviceID },
}

type fileConfig struct {
	ID          string `toml:"id"`
	Description string `toml:"description"`
	Device      string `toml:"device"`
	Baud        int    `toml:"baud"`
	ReadTimeout string `toml:"read_timeout"`
	IdleTimeout string `toml:"idle_timeout"`
	MQTT        string `toml:"mqtt"`
}

// LoadFile overlays the settings defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if meta.IsDefined("id") {
		c.DeviceID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("description") {
		c.Description = raw.Description
	}
	if meta.IsDefined("device") {
		c.Port.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return fmt.Errorf("load config %s: invalid baud %d", path, raw.Baud)
		}
		c.Port.Baud = raw.Baud
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return fmt.Errorf("parse read_timeout: %w", err)
		}
		c.Port.ReadTimeout = d
	}
	if meta.IsDefined("idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
		if err != nil {
			return fmt.Errorf("parse idle_timeout: %w", err)
		}
		c.IdleTimeout = d
	}
	if meta.IsDefined("mqtt") {
		c.MQTTBrokerURL = strings.TrimSpace(raw.MQTT)
	}
	return nil
}

// OpenFIFO opens the port and creates a FIFO over it.
func (c *Config) OpenFIFO() (*comm.FIFO, io.Closer, error) {
	rw, err := port.Open(&c.Port)
	if err != nil {
		return nil, nil, err
	}
	fifo := comm.NewFIFO(rw)
	fifo.IdleTimeout = c.IdleTimeout
	fifo.ReadTimeout = c.Port.UsesReadTimeout()
	return fifo, rw, nil
}
