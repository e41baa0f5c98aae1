package motor

import (
	"fmt"
	"sort"

	"github.com/xanderflood/pimotor/pkg/board"
	"github.com/xanderflood/pimotor/pkg/config"
)

//ValidateAssignment enforces the pin-exclusivity rule at the boundary:
//both pins inside the BCM domain, distinct from each other, and owned
//by no motor other than name.
func ValidateAssignment(cfg config.MotorConfig, name string, next config.PinAssignment) error {
	for _, pin := range []int{next.StepPin, next.DirPin} {
		if !board.Valid(pin) {
			return &PinRangeError{Pin: pin}
		}
	}
	if next.StepPin == next.DirPin {
		return ErrSelfConflict
	}

	for other, pins := range cfg {
		if other == name {
			continue
		}
		if next.StepPin == pins.StepPin || next.StepPin == pins.DirPin ||
			next.DirPin == pins.StepPin || next.DirPin == pins.DirPin {
			return &ConflictError{Motor: other}
		}
	}
	return nil
}

//ActivePins the union of every configured step/direction pin, sorted.
//Always recomputed wholesale so a failed partial initialization cannot
//leave the set drifted.
func ActivePins(cfg config.MotorConfig) []int {
	seen := map[int]struct{}{}
	for _, pins := range cfg {
		seen[pins.StepPin] = struct{}{}
		seen[pins.DirPin] = struct{}{}
	}

	out := make([]int, 0, len(seen))
	for pin := range seen {
		out = append(out, pin)
	}
	sort.Ints(out)
	return out
}

//PinStatus in-use/free classification of one BCM line
type PinStatus struct {
	Pin      int    `json:"bcm_pin"`
	Physical string `json:"physical_pin"`
	InUse    bool   `json:"in_use"`
	UsedBy   string `json:"used_by,omitempty"`
}

//DescribePin classify one BCM line against the configuration. Lines
//outside the domain answer as unknown rather than failing.
func DescribePin(cfg config.MotorConfig, pin int) PinStatus {
	status := PinStatus{
		Pin:      pin,
		Physical: board.PhysicalLabel(pin),
	}
	if !board.Valid(pin) {
		return status
	}

	for motor, pins := range cfg {
		switch pin {
		case pins.StepPin:
			status.InUse = true
			status.UsedBy = fmt.Sprintf("%s step", motor)
			return status
		case pins.DirPin:
			status.InUse = true
			status.UsedBy = fmt.Sprintf("%s direction", motor)
			return status
		}
	}
	return status
}

//DescribeAllPins classify every BCM line on the board
func DescribeAllPins(cfg config.MotorConfig) []PinStatus {
	out := make([]PinStatus, 0, board.NumPins)
	for pin := 0; pin < board.NumPins; pin++ {
		out = append(out, DescribePin(cfg, pin))
	}
	return out
}
