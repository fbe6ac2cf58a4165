package xbee

import (
	"strings"
	"testing"
	"time"

	"github.com/robocorp-link/linkbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is a scripted atPort: every WriteString records the command,
// and scripted responses are queued in order, one per expected read.
type fakePort struct {
	writes    []string
	responses []string
	flushed   bool
}

func (f *fakePort) WriteString(s string) error {
	f.writes = append(f.writes, s)
	return nil
}

func (f *fakePort) Available(timeout time.Duration) (bool, error) {
	return len(f.responses) > 0, nil
}

func (f *fakePort) ReadInto(buf []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	n := copy(buf, resp)
	return n, nil
}

func (f *fakePort) Flush() {
	f.flushed = true
}

// scriptedOKHandshake returns a fakePort whose responses always report the
// desired value already set (the "already converged" fast path), so the
// whole sequence completes with exactly one read per get per step.
func scriptedOKHandshake(cfg ATConfig, own linkbus.Address) *fakePort {
	if cfg.SourceAddr16 == "" {
		cfg.SourceAddr16 = "1"
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
	want := []string{cfg.Baudrate, cfg.Parity, cfg.APIMode, cfg.AESEnable, cfg.AESKey,
		cfg.Channel, cfg.PANID, coordinatorValue(cfg), cfg.SourceAddr16, cfg.DestAddrLow, cfg.DestAddrHigh}

	f := &fakePort{}
	f.responses = append(f.responses, "OK\r") // +++
	for _, w := range want {
		f.responses = append(f.responses, w+"\r") // the "get" reply matches already
	}
	f.responses = append(f.responses, "OK\r") // ATWR
	f.responses = append(f.responses, "OK\r") // ATCN
	return f
}

func coordinatorValue(cfg ATConfig) string {
	if cfg.Coordinator {
		return "1"
	}
	return "0"
}

func TestRunHandshakeAlreadyConverged(t *testing.T) {
	cfg := ATConfig{Baudrate: "3", Parity: "0", APIMode: "0", AESEnable: "0", AESKey: "",
		Channel: "C", PANID: "3332"}
	port := scriptedOKHandshake(cfg, 1)

	err := RunHandshake(port, 1, cfg)
	require.NoError(t, err)
	assert.True(t, port.flushed)
	assert.Equal(t, "+++", port.writes[0])
	assert.Contains(t, port.writes, "ATBD\r")
	assert.Contains(t, port.writes, "ATWR\r")
	assert.Contains(t, port.writes, "ATCN\r")
}

// TestRunHandshakeSetsDifferingParameter scripts every parameter already
// converged except baudrate, which must trigger a set. own is 2 (not 1) so
// Coordinator's computed default stays false and the script only needs one
// get response per converged step.
func TestRunHandshakeSetsDifferingParameter(t *testing.T) {
	f := &fakePort{}
	f.responses = []string{
		"OK\r",   // +++
		"9999\r", // get BD -> differs from desired "3"
		"OK\r",   // set BD -> OK
		"0\r",    // parity: already converged
		"0\r",    // api
		"0\r",    // aes
		"X\r",    // aes_key
		"C\r",    // channel
		"3332\r", // pan_id
		"0\r",    // coordinator (own=2, so Coordinator defaults false)
		"2\r",    // source_addr (defaults to hex of own)
		"0\r",    // dest_addr_low
		"0\r",    // dest_addr_high
		"OK\r",   // ATWR
		"OK\r",   // ATCN
	}
	cfg := ATConfig{Baudrate: "3", Parity: "0", APIMode: "0", AESEnable: "0", AESKey: "X",
		Channel: "C", PANID: "3332"}

	err := RunHandshake(f, 2, cfg)
	require.NoError(t, err)
	assert.True(t, containsPrefix(f.writes, "ATBD3"))
}

func TestRunHandshakeStepFailure(t *testing.T) {
	f := &fakePort{responses: []string{"OK\r", "garbage\r", "NOPE\r"}}
	cfg := ATConfig{Baudrate: "3"}

	err := RunHandshake(f, 1, cfg)
	require.Error(t, err)
	var atErr *linkbus.Error
	require.ErrorAs(t, err, &atErr)
	assert.Equal(t, linkbus.KindATHandshake, atErr.Kind)
	assert.Equal(t, "baudrate", atErr.Step)
}

func TestRunHandshakeEnterFailure(t *testing.T) {
	f := &fakePort{responses: []string{"garbage\r"}}
	err := RunHandshake(f, 1, ATConfig{})
	require.Error(t, err)
	var atErr *linkbus.Error
	require.ErrorAs(t, err, &atErr)
	assert.Equal(t, "enter", atErr.Step)
}

func containsPrefix(items []string, prefix string) bool {
	for _, it := range items {
		if strings.HasPrefix(it, prefix) {
			return true
		}
	}
	return false
}
