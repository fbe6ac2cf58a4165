// Command linkbusctl is the thin CLI test harness named in spec.md §6: it
// wires a Bus over either binding and exposes init/start/send/wait_for/stop
// as subcommands. It carries no business logic of its own beyond flag
// parsing and exit-code mapping to the error taxonomy of spec.md §7.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/robocorp-link/linkbus"
	"github.com/robocorp-link/linkbus/can"
	"github.com/robocorp-link/linkbus/xbee"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "start":
		err = cmdStart(os.Args[2:])
	case "send":
		err = cmdSend(os.Args[2:])
	case "wait_for":
		err = cmdWaitFor(os.Args[2:])
	case "stop":
		err = cmdStop(os.Args[2:])
	case "init":
		err = cmdInit(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	os.Exit(exitCode(err))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: linkbusctl <init|start|send|wait_for|stop> [flags]")
}

// exitCode maps a linkbus.Error's Kind to a stable non-zero exit code, 0
// for success, per spec.md §6's closing note.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *linkbus.Error
	if le, ok := err.(*linkbus.Error); ok {
		e = le
	} else {
		fmt.Fprintln(os.Stderr, "linkbusctl:", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "linkbusctl:", e)
	return int(e.Kind) + 1
}

// commonFlags are shared by every subcommand that needs to open a bus.
type commonFlags struct {
	binding    string
	iface      string
	serial     string
	own        uint8
	canLayout  string
	configPath string
}

func bindCommon(fs *pflag.FlagSet, c *commonFlags) {
	fs.StringVar(&c.binding, "binding", "can", "transport binding: can or xbee")
	fs.StringVar(&c.iface, "interface", "can0", "CAN interface name")
	fs.StringVar(&c.serial, "serial-port", "/dev/ttyUSB0", "XBee serial device path")
	fs.Uint8Var(&c.own, "own-address", 0, "this board's address")
	fs.StringVar(&c.canLayout, "layout", "A", "CAN identifier layout: A or B")
	fs.StringVar(&c.configPath, "config", "", "optional YAML config file overriding flags")
}

func applyConfig(c *commonFlags) error {
	if c.configPath == "" {
		return nil
	}
	cfg, err := linkbus.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.binding = cfg.Binding
	c.own = cfg.OwnAddress
	c.iface = cfg.CAN.InterfaceName
	c.canLayout = cfg.CAN.Layout
	c.serial = cfg.XBee.SerialPort
	return nil
}

func openBus(c *commonFlags, logger *log.Logger) (*linkbus.Bus, error) {
	switch c.binding {
	case "can":
		layout := can.LayoutA
		if c.canLayout == "B" {
			layout = can.LayoutB
		}
		sock, err := can.Dial(c.iface)
		if err != nil {
			return nil, err
		}
		return linkbus.NewBus(linkbus.Address(c.own), canBroadcast(layout), sock, can.NewCodec(layout),
			linkbus.WithLogger(logger)), nil
	case "xbee":
		ser, err := xbee.OpenSerial(c.serial)
		if err != nil {
			return nil, err
		}
		if err := xbee.RunHandshake(ser, linkbus.Address(c.own), xbee.ATConfig{}); err != nil {
			ser.Close()
			return nil, err
		}
		return linkbus.NewBus(linkbus.Address(c.own), 0xFF, ser, xbee.NewCodec(),
			linkbus.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("linkbusctl: unknown binding %q", c.binding)
	}
}

func canBroadcast(layout can.Layout) linkbus.Address {
	if layout == can.LayoutB {
		return 0x0F
	}
	return 0xFF
}

func cmdInit(args []string) error {
	fs := pflag.NewFlagSet("init", pflag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := applyConfig(&c); err != nil {
		return err
	}
	b, err := openBus(&c, log.New(os.Stderr))
	if err != nil {
		return err
	}
	return b.Close()
}

func cmdStart(args []string) error {
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := applyConfig(&c); err != nil {
		return err
	}
	logger := log.New(os.Stderr)
	b, err := openBus(&c, logger)
	if err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		return err
	}
	logger.Info("receiver started", "binding", c.binding, "own", c.own)
	select {}
}

func cmdSend(args []string) error {
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c)
	dst := fs.Uint8("dest", 0, "destination address")
	fct := fs.Uint16("function", 0, "function code")
	payloadHex := fs.String("payload", "", "hex-encoded payload")
	waitMs := fs.Int("wait-ms", 0, "milliseconds to wait for a response; 0 = don't wait")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := applyConfig(&c); err != nil {
		return err
	}
	payload, err := hex.DecodeString(*payloadHex)
	if err != nil {
		return fmt.Errorf("linkbusctl: invalid --payload: %w", err)
	}
	b, err := openBus(&c, log.New(os.Stderr))
	if err != nil {
		return err
	}
	defer b.Close()
	if err := b.Start(); err != nil {
		return err
	}
	resp, err := b.Send(linkbus.Address(*dst), linkbus.FunctionCode(*fct), payload, time.Duration(*waitMs)*time.Millisecond)
	if err != nil {
		return err
	}
	if *waitMs > 0 {
		fmt.Printf("response: %s payload=%x\n", resp, resp.Payload)
	}
	return nil
}

func cmdWaitFor(args []string) error {
	fs := pflag.NewFlagSet("wait_for", pflag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c)
	fct := fs.Uint16("function", 0, "function code to wait for")
	timeoutMs := fs.Int("timeout-ms", 1000, "milliseconds to wait")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := applyConfig(&c); err != nil {
		return err
	}
	b, err := openBus(&c, log.New(os.Stderr))
	if err != nil {
		return err
	}
	defer b.Close()

	received := make(chan linkbus.LogicalMessage, 1)
	b.Handle(linkbus.FunctionCode(*fct), func(_ *linkbus.Bus, m linkbus.LogicalMessage) {
		select {
		case received <- m:
		default:
		}
	})
	if err := b.Start(); err != nil {
		return err
	}
	select {
	case m := <-received:
		fmt.Printf("received: %s payload=%x\n", m, m.Payload)
		return nil
	case <-time.After(time.Duration(*timeoutMs) * time.Millisecond):
		return linkbus.ErrTimeout
	}
}

func cmdStop(args []string) error {
	// The harness process IS the bus instance in this CLI model; stopping
	// an externally-running one is out of scope (no IPC is specified by
	// spec.md §6). This subcommand exists for symmetry with init/start and
	// documents the no-op explicitly rather than silently doing nothing.
	fmt.Fprintln(os.Stderr, "linkbusctl: stop is implicit on process exit (Ctrl-C) for the start subcommand")
	return nil
}
