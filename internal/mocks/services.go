package mocks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/service"
)

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamUsersFunc    func(ctx context.Context, w http.ResponseWriter, format string) error
	StreamWeekPlanFunc func(ctx context.Context, w http.ResponseWriter, year, week int, lang language.Tag) error
	Counts             map[string]int
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Counts: map[string]int{"users": 0},
	}
}

func (m *MockExportService) StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error {
	if m.StreamUsersFunc != nil {
		return m.StreamUsersFunc(ctx, w, format)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("[]"))
	return nil
}

func (m *MockExportService) StreamWeekPlanCSV(ctx context.Context, w http.ResponseWriter, year, week int, lang language.Tag) error {
	if m.StreamWeekPlanFunc != nil {
		return m.StreamWeekPlanFunc(ctx, w, year, week, lang)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Write([]byte("date,weekday,bv_menu,meatless_menu,dinner,dessert\n"))
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context, resource string) (int, error) {
	n, ok := m.Counts[resource]
	if !ok {
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
	return n, nil
}

// PublishedEvent is one call recorded by MockPublisher
type PublishedEvent struct {
	RoutingKey string
	Event      interface{}
}

// MockPublisher records published events
type MockPublisher struct {
	mu           sync.Mutex
	Events       []PublishedEvent
	PublishError error
}

var _ events.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Events = append(m.Events, PublishedEvent{RoutingKey: routingKey, Event: event})
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Keys returns the routing keys published so far, in order
func (m *MockPublisher) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.Events))
	for i, e := range m.Events {
		keys[i] = e.RoutingKey
	}
	return keys
}
