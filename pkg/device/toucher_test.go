package device

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeShell records the shell commands it is asked to run.
type fakeShell struct {
	cmds []string
	err  error
}

func (f *fakeShell) RunShellCommand(cmd string, args ...string) (string, error) {
	f.cmds = append(f.cmds, strings.TrimSpace(cmd+" "+strings.Join(args, " ")))
	return "", f.err
}

func TestADBToucherPerform(t *testing.T) {
	sh := &fakeShell{}
	a := NewShellToucher(sh)

	down := []Touch{
		{ID: 1, Point: Point{X: 263.4, Y: 1063.6}},
		{ID: 2, Point: Point{X: 300.5, Y: 890}},
	}
	if err := a.Perform(context.Background(), down, []int{7}); err != nil {
		t.Fatalf("Perform failed: %v", err)
	}

	want := []string{"input tap 263 1064 & input tap 301 890 & wait"}
	if !reflect.DeepEqual(sh.cmds, want) {
		t.Errorf("cmds = %q, want %q", sh.cmds, want)
	}
}

func TestADBToucherPerformNoDown(t *testing.T) {
	sh := &fakeShell{}
	a := NewShellToucher(sh)
	if err := a.Perform(context.Background(), nil, []int{1, 2}); err != nil {
		t.Fatalf("Perform failed: %v", err)
	}
	if len(sh.cmds) != 0 {
		t.Errorf("lifting only should not run a shell command, got %q", sh.cmds)
	}
}

func TestADBToucherErrors(t *testing.T) {
	touch := []Touch{{Point: Point{X: 1, Y: 2}}}

	boom := errors.New("closed")
	a := NewShellToucher(&fakeShell{err: boom})
	if err := a.Perform(context.Background(), touch, nil); !errors.Is(err, boom) {
		t.Errorf("Perform error = %v, want %v", err, boom)
	}

	if err := NewADBToucher("R58M123").Perform(context.Background(), touch, nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Perform before Connect = %v, want ErrNoDevice", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sh := &fakeShell{}
	if err := NewShellToucher(sh).Perform(ctx, touch, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Perform with cancelled context = %v", err)
	}
	if len(sh.cmds) != 0 {
		t.Errorf("cancelled Perform ran %q", sh.cmds)
	}
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		address string
		host    string
		port    int
		ok      bool
	}{
		{"192.168.0.5:5555", "192.168.0.5", 5555, true},
		{"phone.local:5037", "phone.local", 5037, true},
		{"R58M123", "", 0, false},
		{"emulator-5554", "", 0, false},
		{"host:adb", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		host, port, ok := splitAddress(tt.address)
		if host != tt.host || port != tt.port || ok != tt.ok {
			t.Errorf("splitAddress(%q) = %q, %d, %v", tt.address, host, port, ok)
		}
	}
}

type fakeDevice string

func (d fakeDevice) Serial() string { return string(d) }

func TestPickDevice(t *testing.T) {
	two := []fakeDevice{"R58M123", "192.168.0.5:5555"}

	tests := []struct {
		name    string
		devices []fakeDevice
		address string
		want    fakeDevice
		wantErr bool
	}{
		{"シリアル指定", two, "R58M123", "R58M123", false},
		{"ネットワーク指定", two, "192.168.0.5:5555", "192.168.0.5:5555", false},
		{"1台だけ接続", two[:1], "", "R58M123", false},
		{"複数台で指定なし", two, "", "", true},
		{"接続なし", nil, "", "", true},
		{"見つからない", two, "emulator-5554", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickDevice(tt.devices, tt.address)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pickDevice error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("pickDevice = %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := pickDevice([]fakeDevice(nil), ""); !errors.Is(err, ErrNoDevice) {
		t.Errorf("empty device list = %v, want ErrNoDevice", err)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSink{W: &buf}
	s.Press(39)
	s.Release(39)

	want := "Playing note 39\nReleasing note 39\n"
	if buf.String() != want {
		t.Errorf("LogSink wrote %q, want %q", buf.String(), want)
	}
}
