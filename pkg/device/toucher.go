package device

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/electricbubble/gadb"
)

// ErrNoDevice is returned by Connect when the adb server lists no matching
// device.
var ErrNoDevice = errors.New("no adb device found")

// Touch is one finger put down on the screen.
type Touch struct {
	ID    int
	Point Point
}

// Toucher performs one multitouch frame: fingers in up are lifted and the
// touches in down are put on the screen.
type Toucher interface {
	Perform(ctx context.Context, down []Touch, up []int) error
}

// Shell runs a shell command on the device. gadb.Device implements it.
type Shell interface {
	RunShellCommand(cmd string, args ...string) (string, error)
}

// ADBToucher sends touches through "input tap" over the adb server. adb has
// no way to hold a finger between calls, so every down touch becomes a tap
// and ups are implied.
type ADBToucher struct {
	// Address selects the device: a serial, or "host:port" for a network
	// device. Empty means the only attached one.
	Address string

	shell Shell
}

// NewADBToucher creates a toucher for the device at address. Call Connect
// before the first Perform.
func NewADBToucher(address string) *ADBToucher {
	return &ADBToucher{Address: address}
}

// NewShellToucher creates a toucher on an already opened shell.
func NewShellToucher(s Shell) *ADBToucher {
	return &ADBToucher{shell: s}
}

// Connect talks to the local adb server, attaches a network device
// ("host:port") with "adb connect" and picks the device to drive.
func (a *ADBToucher) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := gadb.NewClient()
	if err != nil {
		return fmt.Errorf("failed to reach adb server: %w", err)
	}

	if host, port, ok := splitAddress(a.Address); ok {
		if err := client.Connect(host, port); err != nil {
			return fmt.Errorf("adb connect %s: %w", a.Address, err)
		}
	}

	devices, err := client.DeviceList()
	if err != nil {
		return fmt.Errorf("failed to list adb devices: %w", err)
	}
	dev, err := pickDevice(devices, a.Address)
	if err != nil {
		return err
	}
	a.shell = dev
	return nil
}

// splitAddress reports the host and port of a network address. USB serials
// return ok == false.
func splitAddress(address string) (string, int, bool) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}

type serialer interface {
	Serial() string
}

// pickDevice returns the device whose serial is address, or the only device
// when address is empty.
func pickDevice[D serialer](devices []D, address string) (D, error) {
	var zero D
	if address == "" {
		switch len(devices) {
		case 0:
			return zero, ErrNoDevice
		case 1:
			return devices[0], nil
		default:
			return zero, fmt.Errorf("%d adb devices attached, choose one with --device", len(devices))
		}
	}
	for _, d := range devices {
		if d.Serial() == address {
			return d, nil
		}
	}
	return zero, fmt.Errorf("%w: %s", ErrNoDevice, address)
}

// Perform taps every down touch in a single shell invocation.
func (a *ADBToucher) Perform(ctx context.Context, down []Touch, _ []int) error {
	if len(down) == 0 {
		return nil
	}
	if a.shell == nil {
		return fmt.Errorf("%w: not connected", ErrNoDevice)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	taps := make([]string, len(down))
	for i, t := range down {
		taps[i] = fmt.Sprintf("input tap %d %d", int(math.Round(t.Point.X)), int(math.Round(t.Point.Y)))
	}
	cmd := strings.Join(taps, " & ") + " & wait"
	if _, err := a.shell.RunShellCommand(cmd); err != nil {
		return fmt.Errorf("adb shell %q: %w", cmd, err)
	}
	return nil
}
