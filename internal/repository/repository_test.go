package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verpflegung/meal-api/internal/models"
)

func TestMapError(t *testing.T) {
	if mapError(nil) != nil {
		t.Error("nil must stay nil")
	}
	if !errors.Is(mapError(sql.ErrNoRows), ErrNotFound) {
		t.Error("Expected ErrNotFound for sql.ErrNoRows")
	}
	if !errors.Is(mapError(fmt.Errorf("scan: %w", sql.ErrNoRows)), ErrNotFound) {
		t.Error("Expected ErrNotFound for wrapped sql.ErrNoRows")
	}

	dup := &pq.Error{Code: "23505", Constraint: "users_email_unique"}
	err := mapError(dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	other := &pq.Error{Code: "23503"}
	if errors.Is(mapError(other), ErrDuplicate) {
		t.Error("Foreign key violation must not map to ErrDuplicate")
	}

	badID := &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "missing"`}
	if !errors.Is(mapError(badID), ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a malformed id, got %v", mapError(badID))
	}
	if !errors.Is(mapError(fmt.Errorf("query: %w", badID)), ErrNotFound) {
		t.Error("Expected ErrNotFound for a wrapped malformed id error")
	}
}

func TestDecodeDays(t *testing.T) {
	seven := make([]models.DayPlan, models.DaysPerWeek)
	raw, _ := json.Marshal(seven)
	days, err := decodeDays("2024-33", raw)
	if err != nil {
		t.Fatalf("decodeDays failed: %v", err)
	}
	if len(days) != 7 {
		t.Errorf("Expected 7 days, got %d", len(days))
	}

	for _, n := range []int{0, 5, 6, 8} {
		raw, _ := json.Marshal(make([]models.DayPlan, n))
		if _, err := decodeDays("2024-33", raw); !errors.Is(err, ErrMalformedWeekPlan) {
			t.Errorf("%d days: expected ErrMalformedWeekPlan, got %v", n, err)
		}
	}

	if _, err := decodeDays("2024-33", []byte(`{"days":1}`)); !errors.Is(err, ErrMalformedWeekPlan) {
		t.Errorf("Expected ErrMalformedWeekPlan for non-array, got %v", err)
	}
}

func TestDecodeDays_LegacyLabels(t *testing.T) {
	legacy := `[
		{"date":"12/08/2024","bv_menu":"Ghackets mit Hörnli","meatless_menu":"Gemüsecurry","dinner":"Suppe"},
		{},{},{},{},{},
		{"dessert":"Meringue"}
	]`
	days, err := decodeDays("2024-33", []byte(legacy))
	if err != nil {
		t.Fatalf("decodeDays failed: %v", err)
	}
	if days[0].BVMenu.Name != "Ghackets mit Hörnli" || days[0].Dinner.Name != "Suppe" {
		t.Errorf("Legacy labels not decoded: %+v", days[0])
	}
	if days[6].Dessert == nil || days[6].Dessert.Name != "Meringue" {
		t.Errorf("Legacy dessert not decoded: %+v", days[6])
	}
}

func TestEncodeDays_RejectsWrongLength(t *testing.T) {
	if _, err := encodeDays(make([]models.DayPlan, 6)); !errors.Is(err, ErrMalformedWeekPlan) {
		t.Errorf("Expected ErrMalformedWeekPlan, got %v", err)
	}
	if _, err := encodeDays(make([]models.DayPlan, 7)); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore().(*memoryTokenStore)
	ctx := context.Background()
	now := time.Date(2024, 8, 12, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("Fresh token must not be revoked (err=%v)", err)
	}

	if err := store.Revoke(ctx, "jti-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); !revoked {
		t.Error("Expected token to be revoked")
	}

	now = now.Add(2 * time.Hour)
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); revoked {
		t.Error("Revocation must lapse once the token expired")
	}
	if len(store.revoked) != 0 {
		t.Errorf("Expected expired entry to be purged, got %d", len(store.revoked))
	}
}

// commandLog records redis commands without sending them. A non-nil fail is
// returned for every command.
type commandLog struct {
	calls *[]string
	fail  error
}

func (h commandLog) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h commandLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := make([]string, 0, len(cmd.Args()))
		for _, a := range cmd.Args() {
			args = append(args, fmt.Sprint(a))
		}
		*h.calls = append(*h.calls, strings.Join(args, " "))
		cmd.SetErr(h.fail)
		return h.fail
	}
}

func (h commandLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

type planStore struct {
	calls *[]string
	err   error
}

func (s planStore) Save(ctx context.Context, plan *models.WeekPlan) error {
	*s.calls = append(*s.calls, "save "+plan.Key())
	return s.err
}

func (s planStore) Get(ctx context.Context, year, week int) (*models.WeekPlan, error) {
	return nil, ErrNotFound
}

func (s planStore) Exists(ctx context.Context, year, week int) (bool, error) {
	return false, nil
}

func TestCachedWeekPlanRepo_SaveInvalidatesAroundWrite(t *testing.T) {
	plan := &models.WeekPlan{Year: 2024, WeekNumber: 33, Days: make([]models.DayPlan, models.DaysPerWeek)}

	tests := []struct {
		name     string
		saveErr  error
		redisErr error
		expected []string
	}{
		{
			name:     "saved",
			expected: []string{"del weekplan:2024-33", "save 2024-33", "del weekplan:2024-33"},
		},
		{
			name:     "store fails",
			saveErr:  errors.New("db down"),
			expected: []string{"del weekplan:2024-33", "save 2024-33"},
		},
		{
			name:     "redis fails",
			redisErr: errors.New("connection refused"),
			expected: []string{"del weekplan:2024-33", "save 2024-33", "del weekplan:2024-33"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
			defer rdb.Close()
			rdb.AddHook(commandLog{calls: &calls, fail: tt.redisErr})

			repo := NewCachedWeekPlanRepo(planStore{calls: &calls, err: tt.saveErr}, rdb, time.Minute, zerolog.Nop())
			err := repo.Save(context.Background(), plan)
			if !errors.Is(err, tt.saveErr) {
				t.Errorf("Expected error %v, got %v", tt.saveErr, err)
			}

			if strings.Join(calls, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("Expected calls %v, got %v", tt.expected, calls)
			}
		})
	}
}
