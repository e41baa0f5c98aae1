package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/xanderflood/pimotor/pkg/board"
	"github.com/xanderflood/pimotor/pkg/config"
	"github.com/xanderflood/pimotor/pkg/motor"
)

const timestampLayout = "2006-01-02 15:04:05"

func timestamp() string {
	return time.Now().Format(timestampLayout)
}

//---
// Generic payloads
//---

//StatusResponse the common success envelope
type StatusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

//ErrResponse renderer for error replies
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

//Render set the response code
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

//ErrInvalidRequest 400
func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		Status:         "error",
		Message:        err.Error(),
		Timestamp:      timestamp(),
	}
}

//ErrConflict 409
func ErrConflict(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		Status:         "error",
		Message:        err.Error(),
		Timestamp:      timestamp(),
	}
}

//ErrInternal 500
func ErrInternal(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         "error",
		Message:        err.Error(),
		Timestamp:      timestamp(),
	}
}

//---
// Request payloads
//---

//MoveRequest POST /move_motor body
type MoveRequest struct {
	Motor   string `json:"motor"`
	Steps   *int   `json:"steps"`
	DelayUs *int   `json:"delay_us"`
}

//Bind apply defaults and reject unusable input
func (m *MoveRequest) Bind(r *http.Request) error {
	if m.Motor == "" {
		return errors.New("motor is a required field")
	}
	if m.Steps == nil {
		steps := 100
		m.Steps = &steps
	}
	if m.DelayUs == nil {
		delay := 1000
		m.DelayUs = &delay
	}
	if *m.DelayUs <= 0 {
		return errors.New("delay_us must be positive")
	}
	return nil
}

//UpdatePinsRequest POST /update_pins body
type UpdatePinsRequest struct {
	Motor   string `json:"motor"`
	StepPin *int   `json:"step_pin"`
	DirPin  *int   `json:"dir_pin"`
}

//Bind reject missing fields
func (u *UpdatePinsRequest) Bind(r *http.Request) error {
	if u.Motor == "" {
		return errors.New("missing required field: motor")
	}
	if u.StepPin == nil {
		return errors.New("missing required field: step_pin")
	}
	if u.DirPin == nil {
		return errors.New("missing required field: dir_pin")
	}
	return nil
}

//---
// Views
//---

//API handlers over the motor controller
type API struct {
	ctrl *motor.Controller
}

//MotorPins one motor's assignment with physical-pin annotations
type MotorPins struct {
	StepPin         int    `json:"step_pin"`
	DirPin          int    `json:"dir_pin"`
	StepPinPhysical string `json:"step_pin_physical"`
	DirPinPhysical  string `json:"dir_pin_physical"`
}

func annotate(cfg config.MotorConfig) map[string]MotorPins {
	out := make(map[string]MotorPins, len(cfg))
	for name, pins := range cfg {
		out[name] = MotorPins{
			StepPin:         pins.StepPin,
			DirPin:          pins.DirPin,
			StepPinPhysical: board.PhysicalLabel(pins.StepPin),
			DirPinPhysical:  board.PhysicalLabel(pins.DirPin),
		}
	}
	return out
}

//GetConfig GET /get_config
func (a *API) GetConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"config": annotate(a.ctrl.Config()),
	})
}

//MoveMotor POST /move_motor
func (a *API) MoveMotor(w http.ResponseWriter, r *http.Request) {
	data := &MoveRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	result, err := a.ctrl.Step(data.Motor, *data.Steps, time.Duration(*data.DelayUs)*time.Microsecond)
	if err != nil {
		if motor.IsInputError(err) {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}
		render.Render(w, r, ErrInternal(fmt.Errorf("error moving motor: %w", err)))
		return
	}

	render.JSON(w, r, StatusResponse{
		Status:    "success",
		Message:   fmt.Sprintf("Moved %s %d steps %s", result.Motor, result.Steps, result.Direction()),
		Timestamp: timestamp(),
	})
}

//StopAll POST /stop_all
func (a *API) StopAll(w http.ResponseWriter, r *http.Request) {
	a.ctrl.StopAll()
	render.JSON(w, r, StatusResponse{
		Status:    "success",
		Message:   "Emergency stop activated. All motors stopped.",
		Timestamp: timestamp(),
	})
}

//GPIOInfo GET /gpio_info
func (a *API) GPIOInfo(w http.ResponseWriter, r *http.Request) {
	status := a.ctrl.Status()

	message := "Real GPIO mode"
	if status.Mock {
		message = "Running in mock mode - no real GPIO access"
	}

	render.JSON(w, r, map[string]interface{}{
		"status":           "success",
		"gpio_initialized": status.Initialized,
		"gpio_available":   !status.Mock,
		"mock_mode":        status.Mock,
		"backend_state":    status.State.String(),
		"message":          message,
		"motor_config":     status.Config,
		"active_pins":      status.ActivePins,
		"gpio_pins":        status.Pins,
		"available_pins":   status.Available,
	})
}

//UpdatePins POST /update_pins
func (a *API) UpdatePins(w http.ResponseWriter, r *http.Request) {
	data := &UpdatePinsRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	next := config.PinAssignment{StepPin: *data.StepPin, DirPin: *data.DirPin}
	if err := a.ctrl.UpdatePins(data.Motor, next); err != nil {
		switch {
		case motor.IsConflictError(err):
			render.Render(w, r, ErrConflict(err))
		case motor.IsInputError(err):
			render.Render(w, r, ErrInvalidRequest(err))
		default:
			render.Render(w, r, ErrInternal(fmt.Errorf("error updating pin configuration: %w", err)))
		}
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":     "success",
		"message":    fmt.Sprintf("Pin configuration for %s updated successfully", data.Motor),
		"new_config": next,
		"timestamp":  timestamp(),
	})
}

//AvailablePins GET /available_pins
func (a *API) AvailablePins(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":         "success",
		"available_pins": motor.DescribeAllPins(a.ctrl.Config()),
	})
}
