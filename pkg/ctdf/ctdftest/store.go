// Package ctdftest provides in-memory implementations of the ctdf stores for tests
package ctdftest

import (
	"context"
	"sort"
	"sync"

	"github.com/travigo/onebusaway/pkg/ctdf"
)

type MemoryStopConfigStore struct {
	mutex       sync.Mutex
	stopConfigs map[string]ctdf.StopConfig

	// Err is returned by every call when set
	Err error
}

func NewMemoryStopConfigStore(stopConfigs ...*ctdf.StopConfig) *MemoryStopConfigStore {
	store := &MemoryStopConfigStore{stopConfigs: map[string]ctdf.StopConfig{}}
	for _, stopConfig := range stopConfigs {
		store.stopConfigs[stopConfig.PrimaryIdentifier] = *stopConfig
	}

	return store
}

func (m *MemoryStopConfigStore) List(ctx context.Context) ([]*ctdf.StopConfig, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	stopConfigs := []*ctdf.StopConfig{}
	for _, stopConfig := range m.stopConfigs {
		stopConfig := stopConfig
		stopConfigs = append(stopConfigs, &stopConfig)
	}
	sort.Slice(stopConfigs, func(i, j int) bool {
		return stopConfigs[i].PrimaryIdentifier < stopConfigs[j].PrimaryIdentifier
	})

	return stopConfigs, nil
}

func (m *MemoryStopConfigStore) Get(ctx context.Context, primaryIdentifier string) (*ctdf.StopConfig, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	stopConfig, ok := m.stopConfigs[primaryIdentifier]
	if !ok {
		return nil, ctdf.ErrStopConfigNotFound
	}

	return &stopConfig, nil
}

func (m *MemoryStopConfigStore) Save(ctx context.Context, stopConfig *ctdf.StopConfig) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.stopConfigs[stopConfig.PrimaryIdentifier] = *stopConfig

	return nil
}

func (m *MemoryStopConfigStore) Delete(ctx context.Context, primaryIdentifier string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}

	if _, ok := m.stopConfigs[primaryIdentifier]; !ok {
		return ctdf.ErrStopConfigNotFound
	}
	delete(m.stopConfigs, primaryIdentifier)

	return nil
}

func (m *MemoryStopConfigStore) SetState(ctx context.Context, primaryIdentifier string, state ctdf.StopConfigState, lastError string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}

	stopConfig, ok := m.stopConfigs[primaryIdentifier]
	if !ok {
		return ctdf.ErrStopConfigNotFound
	}
	stopConfig.State = state
	stopConfig.LastError = lastError
	m.stopConfigs[primaryIdentifier] = stopConfig

	return nil
}
