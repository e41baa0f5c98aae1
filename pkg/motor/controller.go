package motor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/xanderflood/pimotor/pkg/board"
	"github.com/xanderflood/pimotor/pkg/config"
	"github.com/xanderflood/pimotor/pkg/gpio"
)

//BackendState lifecycle of the GPIO backend
type BackendState int

const (
	//Uninitialized no pins are claimed
	Uninitialized BackendState = iota

	//Initialized real hardware is set up
	Initialized

	//MockMode simulated backend is set up; permanent for the process
	MockMode

	//Unavailable real hardware setup failed and was not recoverable
	Unavailable
)

//String state name
func (s BackendState) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case MockMode:
		return "mock"
	case Unavailable:
		return "unavailable"
	default:
		return "uninitialized"
	}
}

//StepResult outcome of a completed step sequence
type StepResult struct {
	Motor   string
	Steps   int
	Forward bool
}

//Direction human-readable direction name
func (r StepResult) Direction() string {
	if r.Forward {
		return "forward"
	}
	return "backward"
}

//Controller owns the backend, the pin map and the active pin set. A
//single mutex is held for the full duration of every operation, so
//step sequences, re-initializations and pin updates never interleave
//their backend writes. A stop issued during a step sequence queues
//behind it.
type Controller struct {
	mu sync.Mutex

	backend  gpio.Backend
	hardware bool

	store  config.Store
	cfg    config.MotorConfig
	active map[int]struct{}
	state  BackendState
}

//New a controller over the given backend. hardware reports whether
//backend is the real one; the startup probe decides that once and the
//controller only ever downgrades it.
func New(store config.Store, backend gpio.Backend, hardware bool) *Controller {
	return &Controller{
		backend:  backend,
		hardware: hardware,
		store:    store,
		cfg:      store.Load(),
		active:   map[int]struct{}{},
		state:    Uninitialized,
	}
}

//Initialize release any previously claimed pins and set up both pins
//of every configured motor as low outputs
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked()
}

func (c *Controller) initLocked() error {
	_ = c.backend.ReleaseAll()
	c.active = map[int]struct{}{}

	if err := c.setupLocked(); err != nil {
		if c.hardware && !gpio.Recoverable(err) {
			c.state = Unavailable
			return fmt.Errorf("failed initializing gpio: %w", err)
		}

		// Denied or already-claimed hardware: downgrade to the
		// simulated backend and carry on. One-way for the process.
		if c.hardware {
			log.Printf("gpio error during init (%v), switching to mock mode", err)
			c.hardware = false
		}
		c.backend = gpio.NewMock()
		c.active = map[int]struct{}{}
		_ = c.setupLocked()
	}

	if c.hardware {
		c.state = Initialized
	} else {
		c.state = MockMode
	}
	log.Printf("gpio initialized (%s) with active pins %v", c.state, ActivePins(c.cfg))
	return nil
}

func (c *Controller) setupLocked() error {
	if err := c.backend.SetMode(); err != nil {
		return err
	}
	for name, pins := range c.cfg {
		for _, pin := range []int{pins.StepPin, pins.DirPin} {
			if err := c.backend.SetupOutput(pin); err != nil {
				return fmt.Errorf("failed setting up pin %d for %s: %w", pin, name, err)
			}
			if err := c.backend.Write(pin, gpio.Low); err != nil {
				return fmt.Errorf("failed clearing pin %d for %s: %w", pin, name, err)
			}
			c.active[pin] = struct{}{}
		}
	}
	return nil
}

func (c *Controller) readyLocked() bool {
	return c.state == Initialized || c.state == MockMode
}

//Step drive a timed step sequence. The sign of steps selects the
//direction, the magnitude the count; the direction pin is written once
//and the step pin toggled high/low |steps| times with delay held after
//each edge. Blocks the caller for the whole sequence and cannot be
//interrupted once started.
func (c *Controller) Step(motor string, steps int, delay time.Duration) (StepResult, error) {
	if delay <= 0 {
		return StepResult{}, &InvalidDelayError{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pins, ok := c.cfg[motor]
	if !ok {
		return StepResult{}, &UnknownMotorError{Motor: motor}
	}

	if !c.readyLocked() {
		if err := c.initLocked(); err != nil {
			return StepResult{}, err
		}
	}

	forward := steps > 0
	count := steps
	if count < 0 {
		count = -count
	}

	dir := gpio.Low
	if forward {
		dir = gpio.High
	}
	if err := c.backend.Write(pins.DirPin, dir); err != nil {
		return StepResult{}, fmt.Errorf("failed setting direction for %s: %w", motor, err)
	}

	for i := 0; i < count; i++ {
		if err := c.backend.Write(pins.StepPin, gpio.High); err != nil {
			return StepResult{}, fmt.Errorf("failed stepping %s: %w", motor, err)
		}
		time.Sleep(delay)
		if err := c.backend.Write(pins.StepPin, gpio.Low); err != nil {
			return StepResult{}, fmt.Errorf("failed stepping %s: %w", motor, err)
		}
		time.Sleep(delay)
	}

	return StepResult{Motor: motor, Steps: count, Forward: forward}, nil
}

//StopAll emergency stop: release the backend and clear the active
//set. Idempotent and always succeeds; no further motion can occur
//until something re-initializes.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readyLocked() {
		_ = c.backend.ReleaseAll()
		log.Println("emergency stop: all gpio pins released")
	}
	c.active = map[int]struct{}{}
	c.state = Uninitialized
}

//UpdatePins validate and apply a new assignment for one motor, persist
//the map, and re-initialize against it. A validation failure leaves
//the configuration untouched.
func (c *Controller) UpdatePins(motor string, next config.PinAssignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cfg[motor]; !ok {
		return &UnknownMotorError{Motor: motor}
	}
	if err := ValidateAssignment(c.cfg, motor, next); err != nil {
		return err
	}

	updated := c.cfg.Clone()
	updated[motor] = next
	c.cfg = updated

	if err := c.store.Save(c.cfg); err != nil {
		// Reported, not fatal: the live assignment still applies.
		log.Printf("failed saving pin configuration: %v", err)
	}

	c.state = Uninitialized
	return c.initLocked()
}

//State the current backend state
func (c *Controller) State() BackendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

//Active the currently claimed pins, sorted
func (c *Controller) Active() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int, 0, len(c.active))
	for pin := 0; pin < board.NumPins; pin++ {
		if _, ok := c.active[pin]; ok {
			out = append(out, pin)
		}
	}
	return out
}

//Config a copy of the live pin map
func (c *Controller) Config() config.MotorConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

//PinInfo one row of the diagnostic pin table
type PinInfo struct {
	Pin        int    `json:"bcm_pin"`
	Physical   string `json:"physical_pin"`
	Active     bool   `json:"active"`
	Function   string `json:"function"`
	IsMotorPin bool   `json:"is_motor_pin"`
}

//Status diagnostic snapshot of the whole subsystem
type Status struct {
	State       BackendState
	Initialized bool
	Mock        bool
	Config      config.MotorConfig
	ActivePins  []int
	Pins        []PinInfo
	Available   []PinStatus
}

//Status build a diagnostic snapshot, lazily initializing first so the
//report reflects a live backend
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.readyLocked() {
		_ = c.initLocked()
	}

	active := make([]int, 0, len(c.active))
	for pin := 0; pin < board.NumPins; pin++ {
		if _, ok := c.active[pin]; ok {
			active = append(active, pin)
		}
	}

	pins := make([]PinInfo, 0, board.NumPins)
	for pin := 0; pin < board.NumPins; pin++ {
		status := DescribePin(c.cfg, pin)
		_, isActive := c.active[pin]

		function := "Unused"
		if status.InUse {
			function = status.UsedBy
		}
		pins = append(pins, PinInfo{
			Pin:        pin,
			Physical:   status.Physical,
			Active:     isActive,
			Function:   function,
			IsMotorPin: isActive,
		})
	}

	return Status{
		State:       c.state,
		Initialized: c.readyLocked(),
		Mock:        !c.hardware,
		Config:      c.cfg.Clone(),
		ActivePins:  active,
		Pins:        pins,
		Available:   DescribeAllPins(c.cfg),
	}
}
