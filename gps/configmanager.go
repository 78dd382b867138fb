package gps

import (
	"sync"

	"github.com/Bucknalla/go-route-simulator/log"
)

// ConfigManager owns the current playback configuration and notifies
// subscribers whenever it changes.
type ConfigManager struct {
	mu          sync.RWMutex
	config      Config
	subscribers map[int]func(Config)
	nextID      int
	lg          *log.Logger
}

func NewConfigManager(initial Config, lg *log.Logger) (*ConfigManager, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &ConfigManager{
		config:      initial,
		subscribers: make(map[int]func(Config)),
		lg:          lg,
	}, nil
}

// Config returns the current configuration.
func (m *ConfigManager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update replaces the configuration. Subscribers are called synchronously,
// after the manager's lock is released, and only if the value changed.
func (m *ConfigManager) Update(config Config) error {
	return m.apply(func(Config) Config { return config })
}

// Modify applies opts to the current configuration and stores the result.
func (m *ConfigManager) Modify(opts ...Option) error {
	return m.apply(func(c Config) Config { return c.With(opts...) })
}

func (m *ConfigManager) apply(next func(Config) Config) error {
	m.mu.Lock()
	config := next(m.config)
	if err := config.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.config == config {
		m.mu.Unlock()
		return nil
	}
	m.config = config
	subs := make([]func(Config), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.lg.Infof("configuration changed: %+v", config)
	for _, fn := range subs {
		fn(config)
	}
	return nil
}

// Subscribe registers fn to be called with each new configuration. The
// returned function removes the subscription.
func (m *ConfigManager) Subscribe(fn func(Config)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}
