package gpio

import "log"

//MockBackend simulated backend with no physical effect. Used for
//development off-Pi and as the automatic fallback when real access
//is unavailable or denied. Every call succeeds.
type MockBackend struct{}

//NewMock a simulated backend
func NewMock() *MockBackend {
	return &MockBackend{}
}

//SetMode log-only
func (*MockBackend) SetMode() error {
	log.Println("mock gpio: setmode")
	return nil
}

//SetupOutput log-only
func (*MockBackend) SetupOutput(pin int) error {
	log.Printf("mock gpio: setup pin %d as output", pin)
	return nil
}

//Write log-only
func (*MockBackend) Write(pin int, level Level) error {
	log.Printf("mock gpio: write pin %d %s", pin, Levels[level])
	return nil
}

//ReleaseAll log-only
func (*MockBackend) ReleaseAll() error {
	log.Println("mock gpio: cleanup")
	return nil
}
