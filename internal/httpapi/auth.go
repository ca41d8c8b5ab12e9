package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"metavendas/internal/domain"
	"metavendas/internal/store"
)

// ProtectedLogin is the built-in administrator account that can never be
// deleted.
const ProtectedLogin = "admin"

type AuthManager struct {
	mu        sync.RWMutex
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	users     map[string]credential
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	DeleteUser(ctx context.Context, login string) error
	UpdateUserPassword(ctx context.Context, login string, password string) error
	UpdateUserPhoto(ctx context.Context, login string, photoURL string) error
}

type credential struct {
	password string
	name     string
	role     string
	photo    string
	created  time.Time
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Name  string `json:"name"`
	Role  string `json:"role"`
	Photo string `json:"photo,omitempty"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	manager := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
	}
	// context.Background() is appropriate here because this is a startup
	// operation that runs before any request context exists.
	manager.bootstrapUsers(context.Background())
	return manager
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	// Re-read the user store so accounts added outside this process are
	// picked up. Acceptable for the low-traffic deployments this serves.
	a.bootstrapUsers(context.Background())

	login := strings.ToLower(strings.TrimSpace(req.Username))
	a.mu.RLock()
	cred, ok := a.users[login]
	a.mu.RUnlock()
	if !ok {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	if !verifyPassword(cred.password, strings.TrimSpace(req.Password)) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(login, cred, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Name:        cred.name,
		Role:        cred.role,
		PhotoURL:    cred.photo,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Login: sub, Name: claims.Name, Role: claims.Role}, nil
}

func (a *AuthManager) sign(login string, cred credential, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "metavendas",
		},
		Name:  cred.name,
		Role:  cred.role,
		Photo: cred.photo,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) CreateUser(req domain.UserCreateRequest) (domain.UserView, error) {
	a.bootstrapUsers(context.Background())

	login := strings.ToLower(strings.TrimSpace(req.Login))
	if login == "" || len(login) < 3 {
		return domain.UserView{}, fmt.Errorf("login must be at least 3 characters")
	}
	if strings.ContainsAny(login, " \t\r\n") {
		return domain.UserView{}, fmt.Errorf("login must not contain spaces")
	}
	if strings.TrimSpace(req.Password) == "" || len(req.Password) < 6 {
		return domain.UserView{}, fmt.Errorf("password must be at least 6 characters")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.UserView{}, fmt.Errorf("display name is required")
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = domain.RoleSeller
	}
	if role != domain.RoleAdmin && role != domain.RoleSeller {
		return domain.UserView{}, fmt.Errorf("role must be admin or seller")
	}

	a.mu.RLock()
	_, exists := a.users[login]
	a.mu.RUnlock()
	if exists {
		return domain.UserView{}, store.ErrDuplicateUser
	}

	now := time.Now().UTC()
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.UserView{}, fmt.Errorf("failed to hash password")
	}

	if err := a.userStore.CreateUser(context.Background(), domain.UserAccount{
		Login:     login,
		Password:  passwordHash,
		Name:      name,
		Role:      role,
		CreatedAt: now,
	}); err != nil {
		return domain.UserView{}, err
	}

	a.mu.Lock()
	a.users[login] = credential{
		password: passwordHash,
		name:     name,
		role:     role,
		created:  now,
	}
	a.mu.Unlock()

	return domain.UserView{
		Login:     login,
		Name:      name,
		Role:      role,
		CreatedAt: now,
	}, nil
}

func (a *AuthManager) ListUsers() []domain.UserView {
	a.bootstrapUsers(context.Background())

	a.mu.RLock()
	result := make([]domain.UserView, 0, len(a.users))
	for login, user := range a.users {
		result = append(result, domain.UserView{
			Login:     login,
			Name:      user.name,
			Role:      user.role,
			PhotoURL:  user.photo,
			CreatedAt: user.created,
		})
	}
	a.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].Login < result[j].Login
	})
	return result
}

// DeleteUser removes an account. The built-in admin account is protected,
// and an actor can never delete the account they are logged in with.
func (a *AuthManager) DeleteUser(login string, actor domain.Actor) error {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == ProtectedLogin {
		return fmt.Errorf("the %s account cannot be deleted", ProtectedLogin)
	}
	if login == actor.Login {
		return fmt.Errorf("cannot delete the account you are logged in with")
	}

	if err := a.userStore.DeleteUser(context.Background(), login); err != nil {
		return err
	}

	a.mu.Lock()
	delete(a.users, login)
	a.mu.Unlock()
	return nil
}

func (a *AuthManager) SetUserPhoto(login string, photoURL string) error {
	login = strings.ToLower(strings.TrimSpace(login))

	if err := a.userStore.UpdateUserPhoto(context.Background(), login, photoURL); err != nil {
		return err
	}

	a.mu.Lock()
	if cred, ok := a.users[login]; ok {
		cred.photo = photoURL
		a.users[login] = cred
	}
	a.mu.Unlock()
	return nil
}

// bootstrapUsers loads accounts from the user store into the in-memory
// credential cache. Legacy rows carrying plain-text passwords are upgraded
// to bcrypt hashes in the store as they are seen.
func (a *AuthManager) bootstrapUsers(ctx context.Context) {
	if a.userStore == nil {
		return
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, user := range users {
		login := strings.ToLower(strings.TrimSpace(user.Login))
		if login == "" {
			continue
		}
		password := user.Password
		if !isPasswordHash(password) {
			hashed, err := hashPassword(password)
			if err == nil {
				password = hashed
				_ = a.userStore.UpdateUserPassword(ctx, login, hashed)
			}
		}
		a.users[login] = credential{
			password: password,
			name:     user.Name,
			role:     user.Role,
			photo:    user.PhotoURL,
			created:  user.CreatedAt,
		}
	}
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || input == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
