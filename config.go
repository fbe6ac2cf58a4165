package linkbus

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings spec.md §6 enumerates as external configuration:
// which binding to use, this board's own address, and the binding-specific
// parameters (CAN interface/layout, or XBee serial/radio settings). The
// fixed serial parameters (9600 8N1) are defaults, not overridable, per
// spec.md §4.6/§6.
type Config struct {
	Binding    string      `yaml:"binding"` // "can" or "xbee"
	OwnAddress uint8       `yaml:"own_address"`
	CAN        CANConfig   `yaml:"can"`
	XBee       XBeeConfig  `yaml:"xbee"`
}

// CANConfig holds the CAN binding's external settings.
type CANConfig struct {
	InterfaceName string `yaml:"interface_name"`
	Layout        string `yaml:"layout"` // "A" or "B"
	BitrateHz     int    `yaml:"bitrate_hz"`
}

// XBeeConfig holds the XBee binding's external settings: the serial device
// plus the radio parameters driven through the AT handshake (spec.md §4.6).
// Baud/parity/data/stop bits are fixed at 9600/none/8/1 and not present
// here; only the parameters the AT handshake actually negotiates are.
type XBeeConfig struct {
	SerialPort   string `yaml:"serial_port"`
	AESKey       string `yaml:"aes_key"`
	PANID        uint16 `yaml:"pan_id"`
	Channel      uint8  `yaml:"channel"`
	Coordinator  bool   `yaml:"coordinator"`
}

// DefaultXBeeConfig returns the default radio parameters (PAN ID 0xFFFF,
// channel 0x0C) that LoadConfig layers under whatever a config file
// overrides.
func DefaultXBeeConfig() XBeeConfig {
	return XBeeConfig{
		PANID:   0xFFFF,
		Channel: 0x0C,
	}
}

// LoadConfig reads and parses a YAML config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, WrapErr(ErrOpenFailed, err)
	}
	cfg := Config{XBee: DefaultXBeeConfig()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, WrapErr(ErrOpenFailed, err)
	}
	return cfg, nil
}
