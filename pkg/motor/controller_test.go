package motor_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/xanderflood/pimotor/pkg/config"
	"github.com/xanderflood/pimotor/pkg/gpio"
	"github.com/xanderflood/pimotor/pkg/gpio/gpiotest"
	"github.com/xanderflood/pimotor/pkg/motor"
)

type fakeStore struct {
	cfg     config.MotorConfig
	saves   int
	saveErr error
}

func (s *fakeStore) Load() config.MotorConfig {
	return s.cfg.Clone()
}

func (s *fakeStore) Save(cfg config.MotorConfig) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cfg = cfg.Clone()
	return nil
}

var _ = Describe("Controller", func() {
	var (
		backend *gpiotest.FakeBackend
		store   *fakeStore
		ctrl    *motor.Controller
	)

	stepDelay := 2 * time.Millisecond

	BeforeEach(func() {
		backend = &gpiotest.FakeBackend{}
		store = &fakeStore{cfg: config.Default()}
		ctrl = motor.New(store, backend, true)
	})

	Describe("Initialize", func() {
		It("sets up every configured pin as a low output", func() {
			Expect(ctrl.Initialize()).To(Succeed())

			Expect(backend.Setups()).To(ConsistOf(17, 27, 22, 23))
			for _, pin := range []int{17, 27, 22, 23} {
				writes := backend.Writes(pin)
				Expect(writes).To(HaveLen(1))
				Expect(writes[0].Level).To(Equal(gpio.Low))
			}

			Expect(ctrl.State()).To(Equal(motor.Initialized))
			Expect(ctrl.Active()).To(Equal([]int{17, 22, 23, 27}))
		})

		It("recomputes the active set on re-initialization", func() {
			Expect(ctrl.Initialize()).To(Succeed())
			Expect(ctrl.Initialize()).To(Succeed())
			Expect(ctrl.Active()).To(Equal([]int{17, 22, 23, 27}))
		})

		Context("when the hardware is already claimed", func() {
			BeforeEach(func() {
				backend.SetupErr = errors.New("device or resource busy")
			})

			It("falls back to mock mode and reports success", func() {
				Expect(ctrl.Initialize()).To(Succeed())
				Expect(ctrl.State()).To(Equal(motor.MockMode))
			})

			It("keeps succeeding on subsequent steps", func() {
				Expect(ctrl.Initialize()).To(Succeed())

				_, err := ctrl.Step("motor1", 3, stepDelay)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("when the hardware fails for another reason", func() {
			BeforeEach(func() {
				backend.SetupErr = errors.New("bcm2835 peripheral fault")
			})

			It("surfaces the error and becomes unavailable", func() {
				err := ctrl.Initialize()
				Expect(err).To(HaveOccurred())
				Expect(ctrl.State()).To(Equal(motor.Unavailable))
			})
		})

		Context("with a mock backend selected at startup", func() {
			It("lands in mock mode", func() {
				ctrl = motor.New(store, gpio.NewMock(), false)
				Expect(ctrl.Initialize()).To(Succeed())
				Expect(ctrl.State()).To(Equal(motor.MockMode))
			})
		})
	})

	Describe("Step", func() {
		BeforeEach(func() {
			Expect(ctrl.Initialize()).To(Succeed())
			backend.Reset()
		})

		It("writes the direction once and toggles the step pin 2N times", func() {
			result, err := ctrl.Step("motor1", 3, stepDelay)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Steps).To(Equal(3))
			Expect(result.Forward).To(BeTrue())
			Expect(result.Direction()).To(Equal("forward"))

			dirWrites := backend.Writes(27)
			Expect(dirWrites).To(HaveLen(1))
			Expect(dirWrites[0].Level).To(Equal(gpio.High))

			stepWrites := backend.Writes(17)
			Expect(stepWrites).To(HaveLen(6))
			for i, op := range stepWrites {
				if i%2 == 0 {
					Expect(op.Level).To(Equal(gpio.High))
				} else {
					Expect(op.Level).To(Equal(gpio.Low))
				}
			}
		})

		It("holds each level for at least the requested delay", func() {
			_, err := ctrl.Step("motor1", 3, stepDelay)
			Expect(err).NotTo(HaveOccurred())

			stepWrites := backend.Writes(17)
			for i := 1; i < len(stepWrites); i++ {
				held := stepWrites[i].At.Sub(stepWrites[i-1].At)
				Expect(held).To(BeNumerically(">=", stepDelay))
			}
		})

		It("drives backward when steps are negative", func() {
			result, err := ctrl.Step("motor2", -2, stepDelay)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Steps).To(Equal(2))
			Expect(result.Direction()).To(Equal("backward"))

			dirWrites := backend.Writes(23)
			Expect(dirWrites).To(HaveLen(1))
			Expect(dirWrites[0].Level).To(Equal(gpio.Low))

			Expect(backend.Writes(22)).To(HaveLen(4))
		})

		It("performs zero toggles for zero steps and still succeeds", func() {
			result, err := ctrl.Step("motor1", 0, stepDelay)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Steps).To(Equal(0))
			Expect(backend.Writes(17)).To(BeEmpty())
		})

		It("rejects an unknown motor", func() {
			_, err := ctrl.Step("motor9", 10, stepDelay)

			var unknown *motor.UnknownMotorError
			Expect(errors.As(err, &unknown)).To(BeTrue())
			Expect(motor.IsInputError(err)).To(BeTrue())
		})

		It("rejects a non-positive delay", func() {
			_, err := ctrl.Step("motor1", 10, 0)
			Expect(motor.IsInputError(err)).To(BeTrue())
		})
	})

	Describe("lazy initialization", func() {
		It("initializes implicitly on the first step", func() {
			Expect(ctrl.State()).To(Equal(motor.Uninitialized))

			_, err := ctrl.Step("motor1", 1, stepDelay)
			Expect(err).NotTo(HaveOccurred())

			Expect(ctrl.State()).To(Equal(motor.Initialized))
			Expect(backend.Setups()).To(ConsistOf(17, 27, 22, 23))
		})
	})

	Describe("StopAll", func() {
		It("is idempotent and leaves the active set empty", func() {
			Expect(ctrl.Initialize()).To(Succeed())

			ctrl.StopAll()
			Expect(ctrl.State()).To(Equal(motor.Uninitialized))
			Expect(ctrl.Active()).To(BeEmpty())

			ctrl.StopAll()
			Expect(ctrl.State()).To(Equal(motor.Uninitialized))
			Expect(ctrl.Active()).To(BeEmpty())
		})
	})

	Describe("UpdatePins", func() {
		BeforeEach(func() {
			Expect(ctrl.Initialize()).To(Succeed())
		})

		It("applies, persists and re-initializes on success", func() {
			backend.Reset()
			Expect(ctrl.UpdatePins("motor2", config.PinAssignment{StepPin: 5, DirPin: 6})).To(Succeed())

			Expect(ctrl.Config()["motor2"]).To(Equal(config.PinAssignment{StepPin: 5, DirPin: 6}))
			Expect(store.saves).To(Equal(1))
			Expect(store.cfg["motor2"]).To(Equal(config.PinAssignment{StepPin: 5, DirPin: 6}))

			Expect(backend.Setups()).To(ConsistOf(17, 27, 5, 6))
			Expect(ctrl.Active()).To(Equal([]int{5, 6, 17, 27}))
		})

		It("rejects a conflict naming the owning motor and leaves state untouched", func() {
			err := ctrl.UpdatePins("motor2", config.PinAssignment{StepPin: 27, DirPin: 5})

			var conflict *motor.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
			Expect(conflict.Motor).To(Equal("motor1"))

			Expect(ctrl.Config()).To(Equal(config.Default()))
			Expect(store.saves).To(BeZero())
		})

		It("rejects a self-conflict without mutating state", func() {
			err := ctrl.UpdatePins("motor1", config.PinAssignment{StepPin: 5, DirPin: 5})
			Expect(err).To(MatchError(motor.ErrSelfConflict))
			Expect(motor.IsConflictError(err)).To(BeTrue())

			Expect(ctrl.Config()).To(Equal(config.Default()))
			Expect(store.saves).To(BeZero())
		})

		It("rejects an unknown motor", func() {
			err := ctrl.UpdatePins("motor9", config.PinAssignment{StepPin: 5, DirPin: 6})
			Expect(motor.IsInputError(err)).To(BeTrue())
		})

		It("treats a save failure as non-fatal", func() {
			store.saveErr = errors.New("disk full")

			Expect(ctrl.UpdatePins("motor2", config.PinAssignment{StepPin: 5, DirPin: 6})).To(Succeed())
			Expect(ctrl.Config()["motor2"]).To(Equal(config.PinAssignment{StepPin: 5, DirPin: 6}))
		})
	})

	Describe("Status", func() {
		It("reports the full pin table and lazily initializes", func() {
			status := ctrl.Status()

			Expect(status.Initialized).To(BeTrue())
			Expect(status.Mock).To(BeFalse())
			Expect(status.State).To(Equal(motor.Initialized))
			Expect(status.ActivePins).To(Equal([]int{17, 22, 23, 27}))
			Expect(status.Pins).To(HaveLen(28))
			Expect(status.Available).To(HaveLen(28))

			Expect(status.Pins[17].Function).To(Equal("motor1 step"))
			Expect(status.Pins[17].Active).To(BeTrue())
			Expect(status.Pins[4].Function).To(Equal("Unused"))
		})
	})
})
