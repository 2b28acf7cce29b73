package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mu          sync.Mutex
	Users       map[string]*models.User
	InsertError error
	UpdateCalls int
}

// Verify interface compliance
var _ repository.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	for _, u := range m.Users {
		if conflicts(u, user) {
			return repository.ErrDuplicate
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if _, ok := m.Users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, u := range m.Users {
		if id != user.ID && conflicts(u, user) {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now().UTC()
	cp := *user
	m.Users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return email != "" && strings.EqualFold(u.Email, email)
	})
}

func (m *MockUserRepository) GetByShortcode(ctx context.Context, shortcode string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return shortcode != "" && strings.EqualFold(u.Shortcode, shortcode)
	})
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.Users))
	for _, u := range m.Users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].LastName != users[j].LastName {
			return users[i].LastName < users[j].LastName
		}
		return users[i].FirstName < users[j].FirstName
	})
	return users, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Users), nil
}

func (m *MockUserRepository) StreamAll(ctx context.Context, callback func(*models.User) error) error {
	users, _ := m.List(ctx)
	for _, user := range users {
		if err := callback(user); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockUserRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func conflicts(a, b *models.User) bool {
	if a.Email != "" && strings.EqualFold(a.Email, b.Email) {
		return true
	}
	return a.Shortcode != "" && strings.EqualFold(a.Shortcode, b.Shortcode)
}

// MockWeekPlanRepository is a mock implementation of WeekPlanRepository
type MockWeekPlanRepository struct {
	mu        sync.Mutex
	Plans     map[string]*models.WeekPlan
	SaveError error
	SaveCalls int
}

var _ repository.WeekPlanRepository = (*MockWeekPlanRepository)(nil)

func NewMockWeekPlanRepository() *MockWeekPlanRepository {
	return &MockWeekPlanRepository{Plans: make(map[string]*models.WeekPlan)}
}

func (m *MockWeekPlanRepository) Save(ctx context.Context, plan *models.WeekPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	plan.UpdatedAt = time.Now().UTC()
	cp := *plan
	cp.Days = append([]models.DayPlan(nil), plan.Days...)
	m.Plans[plan.Key()] = &cp
	return nil
}

// Get mirrors the real loader and refuses plans without seven days
func (m *MockWeekPlanRepository) Get(ctx context.Context, year, week int) (*models.WeekPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Plans[models.PlanKey(year, week)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if len(p.Days) != models.DaysPerWeek {
		return nil, repository.ErrMalformedWeekPlan
	}
	cp := *p
	cp.Days = append([]models.DayPlan(nil), p.Days...)
	return &cp, nil
}

func (m *MockWeekPlanRepository) Exists(ctx context.Context, year, week int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Plans[models.PlanKey(year, week)]
	return ok, nil
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mu     sync.Mutex
	Orders []models.MealOrder
}

var _ repository.OrderRepository = (*MockOrderRepository)(nil)

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{}
}

func (m *MockOrderRepository) Upsert(ctx context.Context, order *models.MealOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	order.UpdatedAt = now
	for i, o := range m.Orders {
		if o.UserID == order.UserID && o.Year == order.Year && o.WeekNumber == order.WeekNumber && o.DayIndex == order.DayIndex {
			order.ID = o.ID
			order.CreatedAt = o.CreatedAt
			m.Orders[i] = *order
			return nil
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.CreatedAt = now
	m.Orders = append(m.Orders, *order)
	return nil
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string, year, week int) ([]models.MealOrder, error) {
	return m.filter(func(o models.MealOrder) bool {
		return o.UserID == userID && o.Year == year && o.WeekNumber == week
	}), nil
}

func (m *MockOrderRepository) ListByWeek(ctx context.Context, year, week int) ([]models.MealOrder, error) {
	return m.filter(func(o models.MealOrder) bool {
		return o.Year == year && o.WeekNumber == week
	}), nil
}

func (m *MockOrderRepository) filter(keep func(models.MealOrder) bool) []models.MealOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.MealOrder{}
	for _, o := range m.Orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayIndex < out[j].DayIndex })
	return out
}
