package main

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/xanderflood/pimotor/pkg/config"
	"github.com/xanderflood/pimotor/pkg/gpio"
	"github.com/xanderflood/pimotor/pkg/motor"
)

//EnvConfig process configuration
type EnvConfig struct {
	Addr       string `env:"ADDR" envDefault:"0.0.0.0:3141"`
	ConfigFile string `env:"CONFIG_FILE" envDefault:"motor_config.json"`
	StaticDir  string `env:"STATIC_DIR" envDefault:"./static"`
	ForceMock  bool   `env:"FORCE_MOCK" envDefault:"false"`
}

func main() {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed parsing environment: %v", err)
	}

	log.Println("starting motor control service...")

	var backend gpio.Backend
	var hardware bool
	if cfg.ForceMock {
		log.Println("FORCE_MOCK set, using mock gpio")
		backend, hardware = gpio.NewMock(), false
	} else {
		backend, hardware = gpio.Probe()
	}

	store := config.NewFileStore(cfg.ConfigFile)
	ctrl := motor.New(store, backend, hardware)
	if err := ctrl.Initialize(); err != nil {
		// Not fatal: the service still answers, reporting its state.
		log.Printf("gpio initialization failed: %v", err)
	}

	router := buildRouter(ctrl, cfg.StaticDir)

	log.Printf("listening on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, router))
}

func buildRouter(ctrl *motor.Controller, staticDir string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	api := &API{ctrl: ctrl}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(staticDir, "index.html"))
	})
	r.Get("/get_config", api.GetConfig)
	r.Post("/move_motor", api.MoveMotor)
	r.Post("/stop_all", api.StopAll)
	r.Get("/gpio_info", api.GPIOInfo)
	r.Post("/update_pins", api.UpdatePins)
	r.Get("/available_pins", api.AvailablePins)

	return r
}
