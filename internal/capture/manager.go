package capture

import (
	"context"
	"image"
	"log"
	"sync"
)

// Manager owns at most one acquired source and its background image.
// Switching strategies always releases the old owner before the new one
// acquires, so no two sources ever hold a device at the same time.
type Manager struct {
	mu         sync.Mutex
	current    Source
	background image.Image
}

// NewManager returns a manager with no source acquired.
func NewManager() *Manager { return &Manager{} }

// Switch releases the current source, then acquires the new one. On
// acquisition failure the manager is left with no source and no background.
func (m *Manager) Switch(ctx context.Context, src Source) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if err := m.current.Release(); err != nil {
			log.Printf("[Capture] release %s: %v", m.current.Kind(), err)
		}
		m.current = nil
		m.background = nil
	}

	img, err := src.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	m.current = src
	m.background = img
	log.Printf("[Capture] acquired %s source", src.Kind())
	return img, nil
}

// Background returns the still image of the current source, nil when no
// source is acquired.
func (m *Manager) Background() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.background
}

// Current returns the acquired source, nil when none.
func (m *Manager) Current() Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Grabber returns the current source's live-frame interface when it has
// one. Remote and file sources return nil: their sessions are pull-only.
func (m *Manager) Grabber() FrameGrabber {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.current.(FrameGrabber); ok {
		return g
	}
	return nil
}

// Release drops the current source and background.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Release()
	m.current = nil
	m.background = nil
	return err
}
