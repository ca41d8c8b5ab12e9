package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"metavendas/internal/domain"
	"metavendas/internal/store"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	if _, exists := s.users[user.Login]; exists {
		return store.ErrDuplicateUser
	}
	s.users[user.Login] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) DeleteUser(_ context.Context, login string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[login]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, login)
	return nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, login string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[login]
	user.Password = password
	s.users[login] = user
	return nil
}

func (s *userStoreStub) UpdateUserPhoto(_ context.Context, login string, photoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[login]
	user.PhotoURL = photoURL
	s.users[login] = user
	return nil
}

func stubWithAdmin() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Login:     "admin",
				Password:  "admin123",
				Name:      "Administrador",
				Role:      domain.RoleAdmin,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	userStore := stubWithAdmin()

	manager := NewAuthManager("test-secret", time.Hour, userStore)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := userStore.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginNormalizesUsername(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())

	if _, err := manager.Login(domain.LoginRequest{Username: "  ADMIN  ", Password: "admin123"}); err != nil {
		t.Fatalf("expected case-insensitive trimmed login to succeed, got %v", err)
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Login != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := manager.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}

func TestCreateUserStoresPasswordHash(t *testing.T) {
	userStore := stubWithAdmin()
	manager := NewAuthManager("test-secret", time.Hour, userStore)

	user, err := manager.CreateUser(domain.UserCreateRequest{
		Login:    "Maria",
		Password: "segredo1",
		Name:     "Maria Silva",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Login != "maria" {
		t.Fatalf("expected lowercased login, got %q", user.Login)
	}
	if user.Role != domain.RoleSeller {
		t.Fatalf("expected default seller role, got %q", user.Role)
	}

	stored := userStore.users["maria"]
	if stored.Password == "segredo1" || !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("expected bcrypt hash in store, got %q", stored.Password)
	}
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())

	cases := []struct {
		name string
		req  domain.UserCreateRequest
	}{
		{"short login", domain.UserCreateRequest{Login: "ab", Password: "segredo1", Name: "A"}},
		{"login with space", domain.UserCreateRequest{Login: "a b c", Password: "segredo1", Name: "A"}},
		{"short password", domain.UserCreateRequest{Login: "maria", Password: "123", Name: "Maria"}},
		{"missing name", domain.UserCreateRequest{Login: "maria", Password: "segredo1"}},
		{"unknown role", domain.UserCreateRequest{Login: "maria", Password: "segredo1", Name: "Maria", Role: "boss"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := manager.CreateUser(tc.req); err == nil {
				t.Fatalf("expected rejection for %s", tc.name)
			}
		})
	}
}

func TestCreateUserRejectsDuplicateLogin(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())

	req := domain.UserCreateRequest{Login: "maria", Password: "segredo1", Name: "Maria"}
	if _, err := manager.CreateUser(req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := manager.CreateUser(req); !errors.Is(err, store.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestDeleteUserProtections(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, stubWithAdmin())
	if _, err := manager.CreateUser(domain.UserCreateRequest{Login: "maria", Password: "segredo1", Name: "Maria"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	actor := domain.Actor{Login: "admin", Role: domain.RoleAdmin}
	if err := manager.DeleteUser("admin", actor); err == nil {
		t.Fatalf("expected the built-in admin account to be protected")
	}

	mariaActor := domain.Actor{Login: "maria", Role: domain.RoleAdmin}
	if err := manager.DeleteUser("maria", mariaActor); err == nil {
		t.Fatalf("expected self-deletion to be rejected")
	}

	if err := manager.DeleteUser("maria", actor); err != nil {
		t.Fatalf("expected admin to delete maria, got %v", err)
	}
}
