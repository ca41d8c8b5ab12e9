package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"metavendas/internal/domain"
	"metavendas/internal/store"
	"metavendas/internal/store/postgres/migrations"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrConnection, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedAdmin(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// seedAdmin creates the built-in admin account on a fresh database. The seed
// password comes from SEED_ADMIN_PASSWORD, with a dev default and a loud
// warning when unset.
func (s *Store) seedAdmin(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return wrapConn(err)
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("[postgres-store] WARNING: using default admin password. Set SEED_ADMIN_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	return s.CreateUser(ctx, domain.UserAccount{
		Login:     "admin",
		Password:  string(hash),
		Name:      "Administrador",
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_date, order_number, seller, pickup_later, amount, origin_order, created_at
		FROM sales
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, wrapConn(err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var amount string
		if err := rows.Scan(&sale.OrderDate, &sale.OrderNumber, &sale.Seller, &sale.PickupLater, &amount, &sale.OriginOrder, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("sale %s has malformed amount %q: %w", sale.OrderNumber, amount, err)
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapConn(err)
	}

	return sales, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) error {
	if strings.TrimSpace(sale.OrderNumber) == "" {
		return store.ErrInvalidSale
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (order_date, order_number, seller, pickup_later, amount, origin_order, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.OrderDate, sale.OrderNumber, sale.Seller, sale.PickupLater, sale.Amount.String(), sale.OriginOrder, sale.CreatedAt.UTC())
	return wrapConn(err)
}

func (s *Store) UpdateSaleByNumber(ctx context.Context, orderNumber string, sale domain.Sale) error {
	if strings.TrimSpace(sale.OrderNumber) == "" {
		return store.ErrInvalidSale
	}

	// Duplicate order numbers are permitted by storage, so the rewrite
	// targets only the newest row carrying the original number.
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET order_date = $2, order_number = $3, seller = $4, pickup_later = $5, amount = $6, origin_order = $7
		WHERE id = (SELECT id FROM sales WHERE order_number = $1 ORDER BY id DESC LIMIT 1)
	`, orderNumber, sale.OrderDate, sale.OrderNumber, sale.Seller, sale.PickupLater, sale.Amount.String(), sale.OriginOrder)
	if err != nil {
		return wrapConn(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSaleByNumber(ctx context.Context, orderNumber string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sales
		WHERE id = (SELECT id FROM sales WHERE order_number = $1 ORDER BY id DESC LIMIT 1)
	`, orderNumber)
	if err != nil {
		return wrapConn(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetPickupStatus(ctx context.Context, orderNumber string, status string) error {
	switch status {
	case domain.PickupNo, domain.PickupPending, domain.PickupDelivered:
	default:
		return store.ErrInvalidSale
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET pickup_later = $2
		WHERE id = (SELECT id FROM sales WHERE order_number = $1 ORDER BY id DESC LIMIT 1)
	`, orderNumber, status)
	if err != nil {
		return wrapConn(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	login := strings.ToLower(strings.TrimSpace(user.Login))
	if login == "" {
		return store.ErrInvalidSale
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (login, password, name, role, photo_url, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, login, user.Password, user.Name, user.Role, user.PhotoURL, user.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateUser
		}
		return wrapConn(err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT login, password, name, role, photo_url, created_at
		FROM users
		ORDER BY login
	`)
	if err != nil {
		return nil, wrapConn(err)
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Login, &user.Password, &user.Name, &user.Role, &user.PhotoURL, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapConn(err)
	}

	return users, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT login, password, name, role, photo_url, created_at
		FROM users
		WHERE login = $1
	`, strings.ToLower(strings.TrimSpace(login))).Scan(&user.Login, &user.Password, &user.Name, &user.Role, &user.PhotoURL, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, wrapConn(err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) DeleteUser(ctx context.Context, login string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM users WHERE login = $1
	`, strings.ToLower(strings.TrimSpace(login)))
	if err != nil {
		return wrapConn(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, login string, password string) error {
	return s.updateUserField(ctx, "password", login, password)
}

func (s *Store) UpdateUserPhoto(ctx context.Context, login string, photoURL string) error {
	return s.updateUserField(ctx, "photo_url", login, photoURL)
}

func (s *Store) updateUserField(ctx context.Context, column string, login string, value string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = $2 WHERE login = $1`, column),
		strings.ToLower(strings.TrimSpace(login)), value)
	if err != nil {
		return wrapConn(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// wrapConn tags connection-class driver failures with store.ErrConnection so
// the API boundary can report the backend as unavailable rather than broken.
func wrapConn(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exceptions.
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %v", store.ErrConnection, err)
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", store.ErrConnection, err)
	}
	return err
}
