package gpiotest

import (
	"sync"
	"time"

	"github.com/xanderflood/pimotor/pkg/gpio"
)

//Op a single recorded backend call
type Op struct {
	Kind  string // "setmode", "setup", "write", "release"
	Pin   int
	Level gpio.Level
	At    time.Time
}

//FakeBackend records every call and can inject failures
type FakeBackend struct {
	mu  sync.Mutex
	ops []Op

	SetModeErr error
	SetupErr   error
	WriteErr   error
	ReleaseErr error
}

var _ gpio.Backend = &FakeBackend{}

func (f *FakeBackend) record(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op.At = time.Now()
	f.ops = append(f.ops, op)
}

func (f *FakeBackend) SetMode() error {
	f.record(Op{Kind: "setmode"})
	return f.SetModeErr
}

func (f *FakeBackend) SetupOutput(pin int) error {
	f.record(Op{Kind: "setup", Pin: pin})
	return f.SetupErr
}

func (f *FakeBackend) Write(pin int, level gpio.Level) error {
	f.record(Op{Kind: "write", Pin: pin, Level: level})
	return f.WriteErr
}

func (f *FakeBackend) ReleaseAll() error {
	f.record(Op{Kind: "release"})
	return f.ReleaseErr
}

//Ops snapshot of every recorded call
func (f *FakeBackend) Ops() []Op {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Op, len(f.ops))
	copy(out, f.ops)
	return out
}

//Reset forget recorded calls, keep injected errors
func (f *FakeBackend) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
}

//Writes recorded write ops for one pin, in order
func (f *FakeBackend) Writes(pin int) []Op {
	var out []Op
	for _, op := range f.Ops() {
		if op.Kind == "write" && op.Pin == pin {
			out = append(out, op)
		}
	}
	return out
}

//Setups recorded setup pins, in order
func (f *FakeBackend) Setups() []int {
	var out []int
	for _, op := range f.Ops() {
		if op.Kind == "setup" {
			out = append(out, op.Pin)
		}
	}
	return out
}
