// Package selection tracks which entities are selected in the editor.
package selection

import (
	"sync"

	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/models"
)

type Service struct {
	mu       sync.RWMutex
	selected []models.EntityID
	events   bus.EventBus
	sub      bus.Subscription
}

// New creates an empty selection and drops destroyed entities from it.
func New(events bus.EventBus) (*Service, error) {
	s := &Service{events: events}
	sub, err := events.Subscribe(bus.TypeEntityDestroyed, s.onEntityDestroyed)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

// Selected returns a copy of the ordered selection.
func (s *Service) Selected() []models.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.EntityID(nil), s.selected...)
}

// SetSelected replaces the selection. Duplicates and invalid ids are
// dropped, first occurrence wins. A change event is always published.
func (s *Service) SetSelected(ids []models.EntityID) error {
	next := make([]models.EntityID, 0, len(ids))
	seen := make(map[models.EntityID]struct{}, len(ids))
	for _, id := range ids {
		if !id.IsValid() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}

	s.mu.Lock()
	s.selected = next
	s.mu.Unlock()
	return s.publish(next)
}

func (s *Service) IsSelected(id models.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, selected := range s.selected {
		if selected == id {
			return true
		}
	}
	return false
}

// Close stops listening to entity destruction.
func (s *Service) Close() error {
	return s.events.Unsubscribe(s.sub)
}

func (s *Service) onEntityDestroyed(ev bus.Event) error {
	destroyed := models.EntityID(ev.(bus.EntityDestroyed).EntityID)
	s.mu.Lock()
	idx := -1
	for i, id := range s.selected {
		if id == destroyed {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.selected = append(s.selected[:idx:idx], s.selected[idx+1:]...)
	next := append([]models.EntityID(nil), s.selected...)
	s.mu.Unlock()
	return s.publish(next)
}

func (s *Service) publish(ids []models.EntityID) error {
	raw := make([]uint64, len(ids))
	for i, id := range ids {
		raw[i] = uint64(id)
	}
	return s.events.Publish(bus.SelectionChanged{Selected: raw})
}
