package xbee

import (
	"fmt"
	"strings"
	"time"

	"github.com/robocorp-link/linkbus"
)

// atPort is the subset of Serial the AT handshake needs, narrowed to an
// interface so the handshake logic can be tested against a fake serial
// device without opening a real one.
type atPort interface {
	WriteString(string) error
	Available(timeout time.Duration) (bool, error)
	ReadInto(buf []byte) (int, error)
	Flush()
}

// ATConfig holds the desired radio parameters the AT handshake converges
// the XBee module to (spec.md §4.6 step 3, SUPPLEMENTED FEATURES item 4's
// per-parameter step names grounded on original_source/XBee/src/xbee.cpp's
// XB_AT_CMD_* / XB_AT_E_* constants).
type ATConfig struct {
	Baudrate    string // e.g. "3" for 9600 in the radio's own table
	Parity      string
	APIMode     string
	AESEnable   string
	AESKey      string
	Channel     string
	PANID       string
	Coordinator bool
	// When left empty, RunHandshake sets SourceAddr16 to own in hex and
	// DestAddrLow/DestAddrHigh to "0".
	SourceAddr16 string
	DestAddrLow  string
	DestAddrHigh string
}

type atStep struct {
	name    string
	command string
	value   func(ATConfig) string
}

// atSteps lists the parameters in the fixed order spec.md §4.6 step 3
// requires. Coordinator's value comes from self.address == 1, per spec.
var atSteps = []atStep{
	{"baudrate", "BD", func(c ATConfig) string { return c.Baudrate }},
	{"parity", "NB", func(c ATConfig) string { return c.Parity }},
	{"api", "AP", func(c ATConfig) string { return c.APIMode }},
	{"aes", "EE", func(c ATConfig) string { return c.AESEnable }},
	{"aes_key", "KY", func(c ATConfig) string { return c.AESKey }},
	{"channel", "CH", func(c ATConfig) string { return c.Channel }},
	{"pan_id", "ID", func(c ATConfig) string { return c.PANID }},
	{"coordinator", "CE", func(c ATConfig) string {
		if c.Coordinator {
			return "1"
		}
		return "0"
	}},
	{"source_addr", "MY", func(c ATConfig) string { return c.SourceAddr16 }},
	{"dest_addr_low", "DL", func(c ATConfig) string { return c.DestAddrLow }},
	{"dest_addr_high", "DH", func(c ATConfig) string { return c.DestAddrHigh }},
}

const (
	atOK            = "OK\r"
	enterGuardDelay = 1100 * time.Millisecond
	enterTimeout    = 3000 * time.Millisecond
	cmdTimeout      = 100 * time.Millisecond
)

// RunHandshake executes the AT configuration handshake over s: enter
// command mode, converge each parameter in atSteps (get, and set only if
// different), persist with ATWR, exit with ATCN, then flush the receive
// buffer (spec.md §4.6). When the caller leaves them unset, SourceAddr16
// is filled from own, Coordinator becomes true if own == 1, and
// DestAddrLow/DestAddrHigh default to "0".
func RunHandshake(s atPort, own linkbus.Address, cfg ATConfig) error {
	if cfg.SourceAddr16 == "" {
		cfg.SourceAddr16 = fmt.Sprintf("%X", uint8(own))
	}
	if cfg.DestAddrLow == "" {
		cfg.DestAddrLow = "0"
	}
	if cfg.DestAddrHigh == "" {
		cfg.DestAddrHigh = "0"
	}
	if !cfg.Coordinator {
		cfg.Coordinator = own == 1
	}

	if err := enterCommandMode(s); err != nil {
		return linkbus.ATHandshakeErr("enter", err)
	}
	for _, step := range atSteps {
		want := step.value(cfg)
		if err := converge(s, step.command, want); err != nil {
			return linkbus.ATHandshakeErr(step.name, err)
		}
	}
	if err := sendExpectOK(s, "ATWR\r"); err != nil {
		return linkbus.ATHandshakeErr("write", err)
	}
	if err := sendExpectOK(s, "ATCN\r"); err != nil {
		return linkbus.ATHandshakeErr("exit", err)
	}
	s.Flush()
	return nil
}

func enterCommandMode(s atPort) error {
	time.Sleep(enterGuardDelay)
	if err := s.WriteString("+++"); err != nil {
		return err
	}
	time.Sleep(enterGuardDelay)
	resp, err := readLine(s, enterTimeout)
	if err != nil {
		return err
	}
	if resp != atOK {
		return fmt.Errorf("xbee: unexpected response entering command mode: %q", resp)
	}
	return nil
}

// converge implements the get-then-maybe-set step: "AT<cmd>\r" returning
// want already means no write is needed; otherwise "AT<cmd><want>\r" must
// be acknowledged with OK, per spec.md §4.6 step 2's "AT<P><V>" where V's
// trailing \r terminates the command the same as a bare get does.
func converge(s atPort, cmd, want string) error {
	if err := s.WriteString("AT" + cmd + "\r"); err != nil {
		return err
	}
	got, err := readLine(s, cmdTimeout)
	if err != nil {
		return err
	}
	if got == want+"\r" || got == want {
		return nil
	}
	if err := s.WriteString("AT" + cmd + want + "\r"); err != nil {
		return err
	}
	got, err = readLine(s, cmdTimeout)
	if err != nil {
		return err
	}
	if got != atOK {
		return fmt.Errorf("xbee: AT%s%s not acknowledged, got %q", cmd, want, got)
	}
	return nil
}

func sendExpectOK(s atPort, cmd string) error {
	if err := s.WriteString(cmd); err != nil {
		return err
	}
	got, err := readLine(s, cmdTimeout)
	if err != nil {
		return err
	}
	if got != atOK {
		return fmt.Errorf("xbee: %q not acknowledged, got %q", cmd, got)
	}
	return nil
}

// readLine reads bytes until a trailing '\r' or timeout elapses.
func readLine(s atPort, timeout time.Duration) (string, error) {
	var sb strings.Builder
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return sb.String(), fmt.Errorf("xbee: AT response timed out after %v", timeout)
		}
		ready, err := s.Available(remaining)
		if err != nil {
			return sb.String(), err
		}
		if !ready {
			return sb.String(), fmt.Errorf("xbee: AT response timed out after %v", timeout)
		}
		buf := make([]byte, 64)
		n, err := s.ReadInto(buf)
		if err != nil {
			return sb.String(), err
		}
		for _, b := range buf[:n] {
			sb.WriteByte(b)
			if b == '\r' {
				return sb.String(), nil
			}
		}
	}
}
