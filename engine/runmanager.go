package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/quantview/backtester/config"
	"github.com/sirupsen/logrus"
)

// RunManager tracks every run the process has started, live or finished
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*BackTest
	log  *logrus.Entry
}

// NewRunManager returns an empty manager
func NewRunManager(log *logrus.Logger) *RunManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RunManager{
		runs: make(map[string]*BackTest),
		log:  log.WithField("component", "runmanager"),
	}
}

// Add registers a run for later lookup
func (m *RunManager) Add(bt *BackTest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[bt.ID()] = bt
}

// Get returns the run with the given ID
func (m *RunManager) Get(id string) (*BackTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bt, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return bt, nil
}

// List returns every tracked run sorted by ID
func (m *RunManager) List() []*BackTest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*BackTest, 0, len(m.runs))
	for _, bt := range m.runs {
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// StopAll cancels anything still running
func (m *RunManager) StopAll() {
	for _, bt := range m.List() {
		if err := bt.Stop(); err == nil {
			m.log.WithField("run", bt.ID()).Info("stopped")
		}
	}
}

// SweepResult pairs one parameter value with its sealed run
type SweepResult struct {
	Value float64 `json:"value"`
	Run   *Run    `json:"run"`
	Err   error   `json:"-"`
}

// Sweep executes the base config once per parameter value, all runs in
// parallel. Every run gets fully isolated components so results are
// identical to executing the values sequentially
func (m *RunManager) Sweep(ctx context.Context, base *config.Config, param string, values []float64, log *logrus.Logger) ([]SweepResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one value", config.ErrInvalidParameter)
	}
	results := make([]SweepResult, len(values))
	var wg sync.WaitGroup
	for i, v := range values {
		cfg := cloneConfig(base)
		if cfg.Strategy.Parameters == nil {
			cfg.Strategy.Parameters = make(map[string]float64)
		}
		cfg.Strategy.Parameters[param] = v

		bt, err := NewFromConfig(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%v: %w", param, v, err)
		}
		m.Add(bt)

		wg.Add(1)
		go func(i int, v float64, bt *BackTest) {
			defer wg.Done()
			run, err := bt.Run(ctx)
			results[i] = SweepResult{Value: v, Run: run, Err: err}
		}(i, v, bt)
	}
	wg.Wait()
	return results, nil
}

// cloneConfig copies the config deeply enough that per-run mutation of
// parameters and instruments cannot leak across sweep runs
func cloneConfig(base *config.Config) *config.Config {
	cfg := *base
	cfg.Strategy.Parameters = make(map[string]float64, len(base.Strategy.Parameters))
	for k, v := range base.Strategy.Parameters {
		cfg.Strategy.Parameters[k] = v
	}
	cfg.Data.Instruments = make([]config.InstrumentSetup, len(base.Data.Instruments))
	copy(cfg.Data.Instruments, base.Data.Instruments)
	return &cfg
}
