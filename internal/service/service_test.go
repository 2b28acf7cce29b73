package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/auth"
	"github.com/verpflegung/meal-api/internal/calendar"
	"github.com/verpflegung/meal-api/internal/config"
	"github.com/verpflegung/meal-api/internal/events"
	"github.com/verpflegung/meal-api/internal/locale"
	"github.com/verpflegung/meal-api/internal/mocks"
	"github.com/verpflegung/meal-api/internal/models"
	"github.com/verpflegung/meal-api/internal/repository"
	"github.com/verpflegung/meal-api/internal/service"
	"github.com/verpflegung/meal-api/internal/validation"
)

type fixture struct {
	svc    *service.Services
	users  *mocks.MockUserRepository
	plans  *mocks.MockWeekPlanRepository
	orders *mocks.MockOrderRepository
	pub    *mocks.MockPublisher
	signal *auth.Signal
	now    time.Time
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, err := locale.New("de")
	if err != nil {
		t.Fatalf("locale.New failed: %v", err)
	}

	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	f := &fixture{
		users:  mocks.NewMockUserRepository(),
		plans:  mocks.NewMockWeekPlanRepository(),
		orders: mocks.NewMockOrderRepository(),
		pub:    mocks.NewMockPublisher(),
		signal: auth.NewSignal(),
		logs:   &bytes.Buffer{},
		// Wednesday of ISO week 2024-W33
		now: time.Date(2024, 8, 14, 10, 0, 0, 0, zurich),
	}

	repos := &repository.Repositories{
		User:     f.users,
		WeekPlan: f.plans,
		Order:    f.orders,
		Tokens:   repository.NewMemoryTokenStore(),
	}
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     "0123456789abcdef",
			TokenTTL:      time.Hour,
			BcryptCost:    bcrypt.MinCost,
			AdminEmail:    "Admin@Example.com",
			AdminPassword: "admin-secret",
		},
		Locale: config.LocaleConfig{Default: "de", Timezone: "Europe/Zurich"},
	}
	infra := service.Infra{
		Issuer:    auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Signal:    f.signal,
		Publisher: f.pub,
		Catalog:   catalog,
		Clock:     func() time.Time { return f.now },
	}

	f.svc = service.NewServices(repos, cfg, infra, zerolog.New(zerolog.SyncWriter(f.logs)))
	return f
}

func (f *fixture) createStaff(t *testing.T, email, role string) *models.CreatedUser {
	t.Helper()
	u, err := f.svc.User.Create(context.Background(), &models.UserInput{
		FirstName: "Staff",
		LastName:  role,
		Email:     email,
		Password:  "secret1",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("Create staff failed: %v", err)
	}
	return u
}

func (f *fixture) createClient(t *testing.T, shortcode, birthYear string) *models.CreatedUser {
	t.Helper()
	u, err := f.svc.User.Create(context.Background(), &models.UserInput{
		FirstName: "Client",
		LastName:  shortcode,
		Role:      "Klient",
		Shortcode: shortcode,
		BirthYear: birthYear,
	})
	if err != nil {
		t.Fatalf("Create client failed: %v", err)
	}
	return u
}

func (f *fixture) savePlan(t *testing.T, year, week int) {
	t.Helper()
	days := make([]models.DayPlan, models.DaysPerWeek)
	for i := range days {
		days[i].BVMenu = models.Menu{Name: "Menu " + string(rune('A'+i))}
		days[i].MeatlessMenu = models.Menu{Name: "Vegi " + string(rune('A'+i))}
	}
	if _, err := f.svc.WeekPlan.Save(context.Background(), year, week, &models.WeekPlanInput{Days: days}, ""); err != nil {
		t.Fatalf("Save plan failed: %v", err)
	}
}

func TestAuthService_LoginStaffByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createStaff(t, "chef@example.com", "Kuechenchef")

	sessionEvents, cancel := f.signal.Subscribe(4)
	defer cancel()

	user, tok, err := f.svc.Auth.Login(ctx, "  CHEF@example.com ", "secret1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != created.ID || user.Role != models.RoleKitchenChef {
		t.Errorf("Unexpected user: %+v", user)
	}
	if auth.DestinationFor(user.Role) != auth.DestinationChef {
		t.Errorf("Expected chef destination")
	}

	select {
	case ev := <-sessionEvents:
		if !ev.Authenticated || ev.SessionID != tok.SessionID {
			t.Errorf("Unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected login event")
	}
}

func TestAuthService_LoginClientByShortcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createClient(t, "AbCd", "2016")

	if created.InitialPassword != "abcd16" {
		t.Fatalf("Expected derived password abcd16, got %q", created.InitialPassword)
	}
	if created.Email != "" {
		t.Errorf("Client must not have an email, got %q", created.Email)
	}

	user, _, err := f.svc.Auth.Login(ctx, "abcd", "abcd16")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if auth.DestinationFor(user.Role) != auth.DestinationOrder {
		t.Errorf("Expected order dashboard for client")
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createStaff(t, "betreuer@example.com", "Betreuer")
	f.createClient(t, "MaMu", "1987")

	tests := []struct {
		name, identifier, secret string
	}{
		{"wrong password", "betreuer@example.com", "wrong-secret"},
		{"unknown email", "nobody@example.com", "secret1"},
		{"unknown shortcode", "zzzz", "zzzz87"},
		{"wrong birth year", "mamu", "mamu88"},
		{"empty identifier", " ", "secret1"},
		{"empty secret", "mamu", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Auth.Login(ctx, tt.identifier, tt.secret)
			if !errors.Is(err, service.ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_LogoutRevokesAndSignals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createStaff(t, "server@example.com", "Server")

	_, tok, err := f.svc.Auth.Login(ctx, "server@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Auth.Authenticate(ctx, tok.Raw); err != nil {
		t.Fatalf("Fresh token should authenticate: %v", err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	states, err := f.svc.Auth.Watch(watchCtx, tok)
	if err != nil {
		t.Fatal(err)
	}
	if v := <-states; !v {
		t.Fatal("Expected authenticated=true first")
	}

	if err := f.svc.Auth.Logout(ctx, tok); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	select {
	case v := <-states:
		if v {
			t.Error("Expected authenticated=false after logout")
		}
	case <-time.After(time.Second):
		t.Fatal("No state after logout")
	}

	if _, err := f.svc.Auth.Authenticate(ctx, tok.Raw); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated after logout, got %v", err)
	}

	late, err := f.svc.Auth.Watch(ctx, tok)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := <-late; !ok || v {
		t.Errorf("Watching a revoked session must yield false, got %v (open=%v)", v, ok)
	}
}

func TestAuthService_DeletedUserLosesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createStaff(t, "admin@example.com", "admin")
	other := f.createStaff(t, "second@example.com", "admin")

	_, tok, err := f.svc.Auth.Login(ctx, "second@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	states, err := f.svc.Auth.Watch(watchCtx, tok)
	if err != nil {
		t.Fatal(err)
	}
	<-states

	if err := f.svc.User.Delete(ctx, admin.ID, other.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	select {
	case v := <-states:
		if v {
			t.Error("Expected authenticated=false after deletion")
		}
	case <-time.After(time.Second):
		t.Fatal("No state after deletion")
	}

	if _, err := f.svc.Auth.Authenticate(ctx, tok.Raw); !errors.Is(err, service.ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated for a deleted user, got %v", err)
	}
}

func TestAuthService_RoleChangeTakesEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chef := f.createStaff(t, "chef@example.com", "kitchen_chef")

	_, tok, err := f.svc.Auth.Login(ctx, "chef@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	states, err := f.svc.Auth.Watch(watchCtx, tok)
	if err != nil {
		t.Fatal(err)
	}
	<-states

	_, err = f.svc.User.Update(ctx, chef.ID, &models.UserInput{
		FirstName: "Staff",
		LastName:  "kitchen_chef",
		Email:     "chef@example.com",
		Role:      "caretaker",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	select {
	case v := <-states:
		if v {
			t.Error("Expected authenticated=false after a role change")
		}
	case <-time.After(time.Second):
		t.Fatal("No state after role change")
	}

	current, err := f.svc.Auth.Authenticate(ctx, tok.Raw)
	if err != nil {
		t.Fatalf("Token of an existing user should authenticate: %v", err)
	}
	if current.Role != models.RoleCaretaker {
		t.Errorf("Expected the stored role caretaker, got %s", current.Role)
	}
}

func TestAuthService_SeedAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.svc.Auth.SeedAdmin(ctx)
	if err != nil || !seeded {
		t.Fatalf("Expected admin to be seeded (err=%v)", err)
	}

	seeded, err = f.svc.Auth.SeedAdmin(ctx)
	if err != nil || seeded {
		t.Fatalf("Second seeding must be skipped (err=%v)", err)
	}
	if n := strings.Count(f.logs.String(), "Admin account created"); n != 1 {
		t.Errorf("Expected the admin creation logged once, got %d", n)
	}

	user, _, err := f.svc.Auth.Login(ctx, "admin@example.com", "admin-secret")
	if err != nil {
		t.Fatalf("Seeded admin cannot log in: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("Expected admin role, got %s", user.Role)
	}
}

func TestUserService_CreateStaff(t *testing.T) {
	f := newFixture(t)
	created := f.createStaff(t, "Anna@Example.com", "admin")

	if created.InitialPassword != "" {
		t.Error("Staff must not get an initial password back")
	}
	if created.Email != "anna@example.com" {
		t.Errorf("Expected normalized email, got %q", created.Email)
	}
	stored := f.users.Users[created.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "secret1" {
		t.Error("Password must be stored hashed")
	}
}

func TestUserService_CreateValidationAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.User.Create(ctx, &models.UserInput{
		FirstName: "Max",
		Role:      "client",
		Shortcode: "MaKl",
		BirthYear: "1987",
		Email:     "max@example.com",
	})
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected validation errors, got %v", err)
	}

	f.createClient(t, "MaKl", "1987")
	_, err = f.svc.User.Create(ctx, &models.UserInput{
		FirstName: "Other",
		Role:      "client",
		Shortcode: "makl",
		BirthYear: "1990",
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for shortcode, got %v", err)
	}
}

func TestUserService_UpdateRederivesClientPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createClient(t, "AbCd", "2016")

	updated, err := f.svc.User.Update(ctx, created.ID, &models.UserInput{
		FirstName: "Client",
		Role:      "client",
		Shortcode: "AbCd",
		BirthYear: "2017",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.InitialPassword != "abcd17" {
		t.Errorf("Expected re-derived password abcd17, got %q", updated.InitialPassword)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "abcd", "abcd17"); err != nil {
		t.Errorf("Login with new derived password failed: %v", err)
	}

	same, err := f.svc.User.Update(ctx, created.ID, &models.UserInput{
		FirstName: "Renamed",
		Role:      "client",
		Shortcode: "AbCd",
		BirthYear: "2017",
	})
	if err != nil {
		t.Fatal(err)
	}
	if same.InitialPassword != "" {
		t.Error("Unchanged shortcode and birth year must keep the password")
	}
}

func TestUserService_UpdateClientToStaffNeedsPassword(t *testing.T) {
	f := newFixture(t)
	created := f.createClient(t, "AbCd", "2016")

	_, err := f.svc.User.Update(context.Background(), created.ID, &models.UserInput{
		FirstName: "Client",
		Role:      "caretaker",
		Email:     "abcd@example.com",
	})
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createStaff(t, "admin@example.com", "admin")
	other := f.createStaff(t, "other@example.com", "caretaker")

	if err := f.svc.User.Delete(ctx, admin.ID, admin.ID); !errors.Is(err, service.ErrSelfDeletion) {
		t.Errorf("Expected ErrSelfDeletion, got %v", err)
	}
	if err := f.svc.User.Delete(ctx, admin.ID, other.ID); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if err := f.svc.User.Delete(ctx, admin.ID, other.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserService_SelfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.createStaff(t, "chef@example.com", "chef")
	client := f.createClient(t, "AbCd", "2016")

	if err := f.svc.User.ChangePassword(ctx, staff.ID, "wrong", "newsecret"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.User.ChangePassword(ctx, staff.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, _, err := f.svc.Auth.Login(ctx, "chef@example.com", "newsecret"); err != nil {
		t.Errorf("Login with new password failed: %v", err)
	}

	if _, err := f.svc.User.ChangeEmail(ctx, client.ID, "client@example.com"); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for client, got %v", err)
	}
	updated, err := f.svc.User.ChangeEmail(ctx, staff.ID, "Kitchen@Example.com")
	if err != nil {
		t.Fatalf("ChangeEmail failed: %v", err)
	}
	if updated.Email != "kitchen@example.com" {
		t.Errorf("Expected normalized email, got %q", updated.Email)
	}
}

func TestWeekPlanService_GetMissingReturnsSkeleton(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.WeekPlan.Get(context.Background(), 2024, 33)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.Exists {
		t.Error("Expected exists=false")
	}
	if len(resp.Days) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(resp.Days))
	}
	if resp.Days[0].Date != "Montag 12/08/2024" || resp.Days[6].Date != "Sonntag 18/08/2024" {
		t.Errorf("Unexpected dates: %s .. %s", resp.Days[0].Date, resp.Days[6].Date)
	}
}

func TestWeekPlanService_SaveDerivesDatesAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	days := make([]models.DayPlan, 7)
	for i := range days {
		days[i].Date = "01/01/1999"
	}
	days[0].BVMenu = models.Menu{Name: "Ghackets mit Hörnli"}

	plan, err := f.svc.WeekPlan.Save(ctx, 2020, 53, &models.WeekPlanInput{Days: days}, "chef-1")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if plan.Days[0].Date != "Montag 28/12/2020" || plan.Days[6].Date != "Sonntag 03/01/2021" {
		t.Errorf("Client dates must be replaced, got %s .. %s", plan.Days[0].Date, plan.Days[6].Date)
	}
	stored, ok := f.plans.Plans["2020-53"]
	if !ok {
		t.Fatal("Expected plan stored under key 2020-53")
	}
	if stored.Days[3].Date != "Donnerstag 31/12/2020" {
		t.Errorf("Expected stored date Donnerstag 31/12/2020, got %s", stored.Days[3].Date)
	}
	if keys := f.pub.Keys(); len(keys) != 1 || keys[0] != events.WeekPlanSaved {
		t.Errorf("Expected weekplan.saved event, got %v", keys)
	}

	resp, err := f.svc.WeekPlan.Get(ctx, 2020, 53)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Exists || resp.Days[0].BVMenu.Name != "Ghackets mit Hörnli" {
		t.Errorf("Unexpected stored plan: %+v", resp)
	}

	exists, err := f.svc.WeekPlan.Exists(ctx, 2020, 53)
	if err != nil || !exists {
		t.Errorf("Expected plan to exist (err=%v)", err)
	}
}

func TestWeekPlanService_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.WeekPlan.Save(ctx, 2024, 53, &models.WeekPlanInput{Days: make([]models.DayPlan, 7)}, ""); !errors.Is(err, calendar.ErrInvalidWeek) {
		t.Errorf("Expected ErrInvalidWeek for 2024-W53, got %v", err)
	}
	if _, err := f.svc.WeekPlan.Get(ctx, 2024, 0); !errors.Is(err, calendar.ErrInvalidWeek) {
		t.Errorf("Expected ErrInvalidWeek for week 0, got %v", err)
	}

	_, err := f.svc.WeekPlan.Save(ctx, 2024, 33, &models.WeekPlanInput{Days: make([]models.DayPlan, 6)}, "")
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Errorf("Expected validation error for 6 days, got %v", err)
	}
	if f.plans.SaveCalls != 0 {
		t.Errorf("Nothing should be stored, got %d saves", f.plans.SaveCalls)
	}

	f.plans.Plans["2024-34"] = &models.WeekPlan{Year: 2024, WeekNumber: 34, Days: make([]models.DayPlan, 5)}
	if _, err := f.svc.WeekPlan.Get(ctx, 2024, 34); !errors.Is(err, repository.ErrMalformedWeekPlan) {
		t.Errorf("Expected ErrMalformedWeekPlan, got %v", err)
	}
}

func TestWeekPlanService_Days(t *testing.T) {
	f := newFixture(t)

	labels, err := f.svc.WeekPlan.Days(2024, 33, language.German)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0].Label != "Montag 12/08/2024" || labels[6].Label != "Sonntag 18/08/2024" {
		t.Errorf("Unexpected labels: %q .. %q", labels[0].Label, labels[6].Label)
	}

	fr, _ := f.svc.WeekPlan.Days(2024, 33, language.French)
	if fr[0].Weekday != "lundi" {
		t.Errorf("Expected French weekday, got %q", fr[0].Weekday)
	}
}

func TestOrderService_Place(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.createClient(t, "AbCd", "2016")
	tok := &auth.Token{UserID: client.ID, Role: models.RoleClient}
	in := &models.OrderInput{Menu: models.ChoiceBV, Dessert: true}

	if _, err := f.svc.Order.Place(ctx, tok, 2024, 33, 2, in); !errors.Is(err, service.ErrPlanMissing) {
		t.Fatalf("Expected ErrPlanMissing, got %v", err)
	}

	f.savePlan(t, 2024, 33)

	if _, err := f.svc.Order.Place(ctx, tok, 2024, 33, 0, in); !errors.Is(err, service.ErrOrderClosed) {
		t.Errorf("Expected ErrOrderClosed for Monday, got %v", err)
	}

	order, err := f.svc.Order.Place(ctx, tok, 2024, 33, 2, in)
	if err != nil {
		t.Fatalf("Ordering today must be allowed: %v", err)
	}
	if order.UserID != client.ID || order.DayIndex != 2 {
		t.Errorf("Unexpected order: %+v", order)
	}

	again, err := f.svc.Order.Place(ctx, tok, 2024, 33, 2, &models.OrderInput{Menu: models.ChoiceMeatless})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != order.ID {
		t.Error("Second order for the same day must replace the first")
	}

	mine, err := f.svc.Order.Mine(ctx, client.ID, 2024, 33)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].Menu != models.ChoiceMeatless {
		t.Errorf("Unexpected orders: %+v", mine)
	}

	var placed int
	for _, k := range f.pub.Keys() {
		if k == events.OrderPlaced {
			placed++
		}
	}
	if placed != 2 {
		t.Errorf("Expected 2 order events, got %d", placed)
	}
}

func TestOrderService_PlaceRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.savePlan(t, 2024, 33)
	client := &auth.Token{UserID: "client-1", Role: models.RoleClient}

	staff := &auth.Token{UserID: "staff-1", Role: models.RoleCaretaker}
	if _, err := f.svc.Order.Place(ctx, staff, 2024, 33, 4, &models.OrderInput{Menu: models.ChoiceBV}); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for staff, got %v", err)
	}
	if _, err := f.svc.Order.Place(ctx, client, 2024, 33, 7, &models.OrderInput{Menu: models.ChoiceBV}); !errors.Is(err, calendar.ErrInvalidWeek) {
		t.Errorf("Expected ErrInvalidWeek for day 7, got %v", err)
	}
	_, err := f.svc.Order.Place(ctx, client, 2024, 33, 4, &models.OrderInput{Menu: "vegan"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestOrderService_WeekTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.savePlan(t, 2024, 33)

	place := func(user string, day int, menu models.MenuChoice, dinner bool) {
		tok := &auth.Token{UserID: user, Role: models.RoleClient}
		if _, err := f.svc.Order.Place(ctx, tok, 2024, 33, day, &models.OrderInput{Menu: menu, Dinner: dinner}); err != nil {
			t.Fatalf("Place failed: %v", err)
		}
	}
	place("a", 3, models.ChoiceBV, true)
	place("b", 3, models.ChoiceMeatless, false)
	place("c", 3, models.ChoiceBV, true)
	place("a", 4, models.ChoiceNone, true)

	week, err := f.svc.Order.Week(ctx, 2024, 33, language.German)
	if err != nil {
		t.Fatal(err)
	}
	if len(week.Orders) != 4 || len(week.Totals) != 7 {
		t.Fatalf("Unexpected week: %d orders, %d totals", len(week.Orders), len(week.Totals))
	}
	thu := week.Totals[3]
	if thu.BV != 2 || thu.Meatless != 1 || thu.Dinner != 2 {
		t.Errorf("Unexpected Thursday totals: %+v", thu)
	}
	if thu.Label != "Donnerstag 15/08/2024" {
		t.Errorf("Unexpected label %q", thu.Label)
	}
	fri := week.Totals[4]
	if fri.BV != 0 || fri.Meatless != 0 || fri.Dinner != 1 {
		t.Errorf("Unexpected Friday totals: %+v", fri)
	}
}

func TestExportService_StreamUsers(t *testing.T) {
	f := newFixture(t)
	f.createStaff(t, "chef@example.com", "chef")
	f.createClient(t, "AbCd", "2016")

	w := httptest.NewRecorder()
	if err := f.svc.Export.StreamUsers(context.Background(), w, "csv"); err != nil {
		t.Fatalf("StreamUsers failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "id" || records[0][4] != "role" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	if strings.Contains(w.Body.String(), "$2a$") {
		t.Error("Export must not contain password hashes")
	}

	w = httptest.NewRecorder()
	if err := f.svc.Export.StreamUsers(context.Background(), w, "json"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("JSON export must not contain password fields")
	}

	err = f.svc.Export.StreamUsers(context.Background(), httptest.NewRecorder(), "xml")
	if !errors.Is(err, service.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}

	count, err := f.svc.Export.GetCount(context.Background(), "users")
	if err != nil || count != 2 {
		t.Errorf("Expected 2 users, got %d (err=%v)", count, err)
	}
}

func TestExportService_WeekPlanCSV(t *testing.T) {
	f := newFixture(t)
	f.savePlan(t, 2024, 33)

	w := httptest.NewRecorder()
	if err := f.svc.Export.StreamWeekPlanCSV(context.Background(), w, 2024, 33, language.German); err != nil {
		t.Fatalf("StreamWeekPlanCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 8 {
		t.Fatalf("Expected header + 7 rows, got %d", len(records))
	}
	if records[1][0] != "12/08/2024" || records[1][1] != "Montag" || records[1][2] != "Menu A" {
		t.Errorf("Unexpected first row: %v", records[1])
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "weekplan-2024-33.csv") {
		t.Errorf("Unexpected disposition: %s", w.Header().Get("Content-Disposition"))
	}
}
