package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDBridge   string
	MQTTClientIDConsole  string
	MQTTClientIDProducer string
	MQTTQoS              byte // 0, 1 or 2

	// Topics. Per-client topics are built as <base>/<client id>.
	TopicMotion     string
	TopicPermission string

	// Web Server
	WebServerPort int
	StaticDir     string // served at "/", empty disables

	// Motion
	ProbeTimeoutMS int // availability probe window
	EmitDecimation int // publish one sample out of N (1 = all)
	MockIntervalMS int // synthetic host event period

	// Timing
	ConsoleLogInterval int // milliseconds
}

// Package-level unexported variables for the singleton:
//   - globalConfig: only reachable through InitGlobal/Get.
//   - configOnce: InitGlobal() only loads once.
//   - configMu: write lock while loading, read lock in Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used when no file sets a key.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDBridge:   "devicemotion-bridge",
		MQTTClientIDConsole:  "devicemotion-console",
		MQTTClientIDProducer: "devicemotion-producer",
		TopicMotion:          "devicemotion/sample",
		TopicPermission:      "devicemotion/permission",
		WebServerPort:        8080,
		StaticDir:            "web",
		ProbeTimeoutMS:       1000,
		EmitDecimation:       1,
		MockIntervalMS:       16,
		ConsoleLogInterval:   500,
	}
}

// Load reads the configuration file on top of Default().
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ProbeTimeout returns the probe window as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

// MockInterval returns the synthetic host period as a duration.
func (c *Config) MockInterval() time.Duration {
	return time.Duration(c.MockIntervalMS) * time.Millisecond
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_QOS":
		qos, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_QOS %q: %w", value, err)
		}
		if qos < 0 || qos > 2 {
			return fmt.Errorf("MQTT_QOS must be 0-2, got %d", qos)
		}
		c.MQTTQoS = byte(qos)

	// Topics
	case "TOPIC_MOTION":
		c.TopicMotion = strings.TrimSuffix(value, "/")
	case "TOPIC_PERMISSION":
		c.TopicPermission = strings.TrimSuffix(value, "/")

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", port)
		}
		c.WebServerPort = port
	case "STATIC_DIR":
		c.StaticDir = value

	// Motion
	case "PROBE_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PROBE_TIMEOUT_MS %q: %w", value, err)
		}
		if ms <= 0 {
			return fmt.Errorf("PROBE_TIMEOUT_MS must be positive, got %d", ms)
		}
		c.ProbeTimeoutMS = ms
	case "EMIT_DECIMATION":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid EMIT_DECIMATION %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("EMIT_DECIMATION must be >= 1, got %d", n)
		}
		c.EmitDecimation = n
	case "MOCK_INTERVAL_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOCK_INTERVAL_MS %q: %w", value, err)
		}
		if ms <= 0 {
			return fmt.Errorf("MOCK_INTERVAL_MS must be positive, got %d", ms)
		}
		c.MockIntervalMS = ms

	// Timing
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive, got %d", interval)
		}
		c.ConsoleLogInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicMotion == "" {
		return fmt.Errorf("TOPIC_MOTION is required")
	}
	if c.TopicPermission == "" {
		return fmt.Errorf("TOPIC_PERMISSION is required")
	}
	if c.ConsoleLogInterval <= 0 {
		return fmt.Errorf("CONSOLE_LOG_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls are no-ops.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or Default() when
// InitGlobal has not loaded one.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	if globalConfig == nil {
		return Default()
	}
	return globalConfig
}
