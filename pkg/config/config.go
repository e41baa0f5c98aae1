package config

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"sync"
)

//PinAssignment step/direction pins for one motor
type PinAssignment struct {
	StepPin int `json:"step_pin"`
	DirPin  int `json:"dir_pin"`
}

//MotorConfig maps motor name to its pin assignment
type MotorConfig map[string]PinAssignment

//Clone a deep copy
func (c MotorConfig) Clone() MotorConfig {
	out := make(MotorConfig, len(c))
	for name, pins := range c {
		out[name] = pins
	}
	return out
}

//Default the built-in pin assignment used when no saved
//configuration exists or it cannot be read
func Default() MotorConfig {
	return MotorConfig{
		"motor1": {StepPin: 17, DirPin: 27},
		"motor2": {StepPin: 22, DirPin: 23},
	}
}

//Store persistence for the pin map
//go:generate counterfeiter . Store
type Store interface {
	Load() MotorConfig
	Save(MotorConfig) error
}

//FileStore JSON file-backed store. Load never fails past this
//boundary: anything unreadable degrades to the default map.
type FileStore struct {
	path string
	mu   sync.Mutex
}

//NewFileStore a store persisting to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

//Load read the saved map, falling back to (and persisting) the
//default on absence or corruption
func (s *FileStore) Load() MotorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	bs, err := ioutil.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config: error loading %s: %v, using defaults", s.path, err)
		}
		return s.resetLocked()
	}

	var cfg MotorConfig
	if err := json.Unmarshal(bs, &cfg); err != nil || len(cfg) == 0 {
		log.Printf("config: %s is unusable, using defaults", s.path)
		return s.resetLocked()
	}
	return cfg
}

func (s *FileStore) resetLocked() MotorConfig {
	cfg := Default()
	if err := s.saveLocked(cfg); err != nil {
		log.Printf("config: error saving defaults: %v", err)
	}
	return cfg
}

//Save overwrite the saved map wholesale. The write is atomic from a
//reader's perspective: temp file in the same directory, then rename.
func (s *FileStore) Save(cfg MotorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cfg)
}

func (s *FileStore) saveLocked(cfg MotorConfig) error {
	bs, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := ioutil.WriteFile(tmp, bs, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
