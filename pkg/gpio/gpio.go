package gpio

import (
	"fmt"
	"log"
	"os"
	"strings"

	rpio "github.com/stianeikeland/go-rpio"
	"periph.io/x/periph/host"
)

//Level IO pin level
type Level = rpio.State

const (
	//Low signal
	Low = rpio.Low

	//High signal
	High = rpio.High
)

//Levels level names
var Levels = map[Level]string{
	Low:  "low",
	High: "high",
}

//Backend minimal capability over the GPIO header
//go:generate counterfeiter . Backend
type Backend interface {
	SetMode() error
	SetupOutput(pin int) error
	Write(pin int, level Level) error
	ReleaseAll() error
}

//ProbePin BCM line used for the one-shot startup access test
const ProbePin = 17

//HardwareBackend drives the header through /dev/gpiomem
type HardwareBackend struct {
	open bool
}

//NewHardware a real backend, not yet opened
func NewHardware() *HardwareBackend {
	return &HardwareBackend{}
}

//SetMode map the GPIO memory range, idempotent
func (b *HardwareBackend) SetMode() error {
	if b.open {
		return nil
	}
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("failed opening gpio memory: %w", err)
	}
	b.open = true
	return nil
}

//SetupOutput switch a BCM line to output mode
func (b *HardwareBackend) SetupOutput(pin int) error {
	if err := b.SetMode(); err != nil {
		return err
	}
	rpio.Pin(pin).Output()
	return nil
}

//Write drive a BCM line
func (b *HardwareBackend) Write(pin int, level Level) error {
	if err := b.SetMode(); err != nil {
		return err
	}
	p := rpio.Pin(pin)
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

//ReleaseAll unmap the GPIO memory range, idempotent
func (b *HardwareBackend) ReleaseAll() error {
	if !b.open {
		return nil
	}
	b.open = false
	return rpio.Close()
}

//Probe attempt real header access with one trial setup/release cycle.
//Any failure selects the simulated backend for the rest of the process.
func Probe() (Backend, bool) {
	if _, err := host.Init(); err != nil {
		log.Printf("gpio: host probe failed: %v, falling back to mock mode", err)
		return NewMock(), false
	}

	hw := NewHardware()
	if err := hw.SetMode(); err != nil {
		log.Printf("gpio: access test failed: %v, falling back to mock mode", err)
		return NewMock(), false
	}
	if err := hw.SetupOutput(ProbePin); err != nil {
		_ = hw.ReleaseAll()
		log.Printf("gpio: access test failed: %v, falling back to mock mode", err)
		return NewMock(), false
	}
	if err := hw.ReleaseAll(); err != nil {
		log.Printf("gpio: access test failed: %v, falling back to mock mode", err)
		return NewMock(), false
	}

	log.Println("gpio: access confirmed")
	return hw, true
}

//Recoverable whether an initialization error should downgrade to mock
//mode rather than fail: denied, missing, or already-claimed hardware.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) || os.IsNotExist(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "not permitted") ||
		strings.Contains(msg, "no such file") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "not allocated")
}
