package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/verpflegung/meal-api/internal/models"
)

func TestDerivePassword(t *testing.T) {
	tests := []struct {
		shortcode, birthYear, want string
	}{
		{"abcd", "2016", "abcd16"},
		{"XY", "05", "xy05"},
		{"MaMu", "1987", "mamu87"},
		{"ab", "7", "ab7"},
		{"ab", "", "ab"},
		{"", "1999", "99"},
	}

	for _, tt := range tests {
		if got := DerivePassword(tt.shortcode, tt.birthYear); got != tt.want {
			t.Errorf("DerivePassword(%q, %q) = %q, want %q", tt.shortcode, tt.birthYear, got, tt.want)
		}
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("abcd16", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "abcd16" {
		t.Fatal("hash must not equal the plain password")
	}
	if !VerifyPassword(hash, "abcd16") {
		t.Error("Expected matching password to verify")
	}
	if VerifyPassword(hash, "abcd17") {
		t.Error("Expected wrong password to fail")
	}
	if VerifyPassword("", "") {
		t.Error("Expected empty hash to fail")
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		role, want string
	}{
		{"Admin", DestinationAdmin},
		{"admin", DestinationAdmin},
		{"Kuechenchef", DestinationChef},
		{"Chef", DestinationChef},
		{"kitchen_chef", DestinationChef},
		{"Caretaker", DestinationCaretaker},
		{"Betreuer", DestinationCaretaker},
		{"Server", DestinationService},
		{"Servicemitarbeiter", DestinationService},
		{"Klient", DestinationOrder},
		{"client", DestinationOrder},
		{"Unknown", DestinationHome},
		{"", DestinationHome},
		{"\x00\xff", DestinationHome},
	}

	for _, tt := range tests {
		if got := Destination(tt.role); got != tt.want {
			t.Errorf("Destination(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}

	if got := DestinationFor(models.Role("ghost")); got != DestinationHome {
		t.Errorf("DestinationFor(ghost) = %q", got)
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", time.Hour)
	user := &models.User{ID: "user-1", Role: models.RoleKitchenChef}

	tok, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if tok.SessionID == "" {
		t.Fatal("Expected session ID")
	}

	parsed, err := issuer.Parse(tok.Raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.UserID != "user-1" || parsed.Role != models.RoleKitchenChef {
		t.Errorf("Unexpected claims: %+v", parsed)
	}
	if parsed.SessionID != tok.SessionID {
		t.Errorf("Session ID mismatch: %s vs %s", parsed.SessionID, tok.SessionID)
	}
}

func TestIssuer_Rejects(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", time.Hour)
	tok, _ := issuer.Issue(&models.User{ID: "u", Role: models.RoleAdmin})

	other := NewIssuer("fedcba9876543210", time.Hour)
	if _, err := other.Parse(tok.Raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for foreign signature, got %v", err)
	}

	if _, err := issuer.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}

	expired := NewIssuer("0123456789abcdef", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue(&models.User{ID: "u", Role: models.RoleAdmin})
	if _, err := issuer.Parse(old.Raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestSignal_PublishSubscribe(t *testing.T) {
	s := NewSignal()
	a, cancelA := s.Subscribe(4)
	b, cancelB := s.Subscribe(4)
	defer cancelB()

	s.Publish(SessionEvent{SessionID: "s1", Authenticated: false})

	for i, ch := range []<-chan SessionEvent{a, b} {
		select {
		case ev := <-ch:
			if ev.SessionID != "s1" || ev.Authenticated {
				t.Errorf("subscriber %d got %+v", i, ev)
			}
			if ev.At.IsZero() {
				t.Errorf("subscriber %d: event time not set", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i)
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("Expected cancelled channel to be closed")
	}
	if s.Subscribers() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", s.Subscribers())
	}
}

func TestSignal_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewSignal()
	_, cancel := s.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(SessionEvent{SessionID: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestSignal_Watch(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := s.Watch(ctx, "sess-1", "user-1", time.Now().Add(time.Hour))
	if v := <-states; !v {
		t.Fatal("Expected initial true")
	}

	waitForSubscribers(t, s, 1)

	s.Publish(SessionEvent{SessionID: "other", Authenticated: false})
	s.Publish(SessionEvent{SessionID: "sess-1", Authenticated: false})

	select {
	case v := <-states:
		if v {
			t.Error("Expected false after logout")
		}
	case <-time.After(time.Second):
		t.Fatal("no logout state received")
	}

	if _, ok := <-states; ok {
		t.Error("Expected channel closed after false")
	}
}

func TestSignal_WatchUserSignOut(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := s.Watch(ctx, "sess-3", "user-3", time.Now().Add(time.Hour))
	<-states
	waitForSubscribers(t, s, 1)

	// events for other users and positive events leave the session alone
	s.Publish(SessionEvent{UserID: "user-4", Authenticated: false})
	s.Publish(SessionEvent{UserID: "user-3", Authenticated: true})
	s.Publish(SessionEvent{UserID: "user-3", Authenticated: false})

	select {
	case v := <-states:
		if v {
			t.Error("Expected false after the user was signed out")
		}
	case <-time.After(time.Second):
		t.Fatal("no sign-out state received")
	}
}

func TestSessionEvent_Ends(t *testing.T) {
	tests := []struct {
		name string
		ev   SessionEvent
		want bool
	}{
		{"same session", SessionEvent{SessionID: "s1", UserID: "u1"}, true},
		{"other session", SessionEvent{SessionID: "s2", UserID: "u1"}, false},
		{"whole user", SessionEvent{UserID: "u1"}, true},
		{"other user", SessionEvent{UserID: "u2"}, false},
		{"no target", SessionEvent{}, false},
		{"login", SessionEvent{SessionID: "s1", UserID: "u1", Authenticated: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Ends("s1", "u1"); got != tt.want {
				t.Errorf("Ends = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignal_WatchExpiry(t *testing.T) {
	s := NewSignal()
	states := s.Watch(context.Background(), "sess-2", "user-2", time.Now().Add(20*time.Millisecond))

	got := []bool{}
	for v := range states {
		got = append(got, v)
	}
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("Expected [true false], got %v", got)
	}
}

func TestSignal_Close(t *testing.T) {
	s := NewSignal()
	ch, _ := s.Subscribe(1)
	s.Close()
	if _, ok := <-ch; ok {
		t.Error("Expected closed channel")
	}

	late, _ := s.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("Subscribe after Close must return a closed channel")
	}
	s.Publish(SessionEvent{SessionID: "ignored"})
}

func waitForSubscribers(t *testing.T, s *Signal, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for s.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d subscribers", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClaimsRoleIsCanonical(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", time.Minute)
	tok, _ := issuer.Issue(&models.User{ID: "u", Role: models.RoleClient})
	if !strings.Contains(tok.Raw, ".") {
		t.Fatal("Expected a JWT")
	}
	parsed, err := issuer.Parse(tok.Raw)
	if err != nil {
		t.Fatal(err)
	}
	if Destination(string(parsed.Role)) != DestinationOrder {
		t.Errorf("client token should route to the order dashboard")
	}
}
