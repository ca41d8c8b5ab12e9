// Package sheet is the spreadsheet-as-database backend: a two-sheet document
// on disk (Sales and Users, one CSV file per sheet) loaded whole into memory
// and rewritten whole on every mutation. Concurrent writers from different
// processes are last-write-wins, matching how the shared spreadsheet behaved.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"metavendas/internal/domain"
	"metavendas/internal/store"
)

const (
	salesFile = "Sales.csv"
	usersFile = "Users.csv"
)

type Store struct {
	mu    sync.RWMutex
	dir   string
	sales []domain.Sale // insertion order, oldest first
	users map[string]domain.UserAccount
}

// Open loads the sheet document at dir, creating it with a seeded admin
// account when no Users sheet exists yet. The seed password comes from
// SEED_ADMIN_PASSWORD, with a dev default and a loud warning when unset.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create sheet dir: %v", store.ErrConnection, err)
	}

	s := &Store{
		dir:   dir,
		users: make(map[string]domain.UserAccount),
	}

	if err := s.loadSales(); err != nil {
		return nil, err
	}
	if err := s.loadUsers(); err != nil {
		return nil, err
	}

	if len(s.users) == 0 {
		if err := s.seedAdmin(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) seedAdmin() error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("[sheet-store] WARNING: using default admin password. Set SEED_ADMIN_PASSWORD to override.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	s.users["admin"] = domain.UserAccount{
		Login:     "admin",
		Password:  string(hash),
		Name:      "Administrador",
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	return s.saveUsersLocked()
}

func (s *Store) loadSales() error {
	records, err := readSheet(filepath.Join(s.dir, salesFile), salesHeader)
	if err != nil {
		return err
	}
	for i, record := range records {
		sale, err := decodeSaleRow(record)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", salesFile, i+2, err)
		}
		s.sales = append(s.sales, sale)
	}
	return nil
}

func (s *Store) loadUsers() error {
	records, err := readSheet(filepath.Join(s.dir, usersFile), usersHeader)
	if err != nil {
		return err
	}
	for i, record := range records {
		user, err := decodeUserRow(record)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", usersFile, i+2, err)
		}
		s.users[user.Login] = user
	}
	return nil
}

// readSheet returns the data rows of one sheet file, skipping the header.
// A missing file means an empty sheet, not an error.
func readSheet(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrConnection, filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(header)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

// writeSheet rewrites one sheet file atomically: full content to a temp file
// in the same directory, then rename over the target.
func writeSheet(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp sheet: %v", store.ErrConnection, err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err == nil {
		err = writer.WriteAll(rows)
	}
	writer.Flush()
	writeErr := errors.Join(writer.Error(), tmp.Close())
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", store.ErrConnection, filepath.Base(path), writeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: replace %s: %v", store.ErrConnection, filepath.Base(path), err)
	}
	return nil
}

func (s *Store) saveSalesLocked() error {
	rows := make([][]string, 0, len(s.sales))
	for _, sale := range s.sales {
		rows = append(rows, encodeSaleRow(sale))
	}
	return writeSheet(filepath.Join(s.dir, salesFile), salesHeader, rows)
}

func (s *Store) saveUsersLocked() error {
	rows := make([][]string, 0, len(s.users))
	for _, user := range s.users {
		rows = append(rows, encodeUserRow(user))
	}
	return writeSheet(filepath.Join(s.dir, usersFile), usersHeader, rows)
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first: reverse of insertion order.
	sales := make([]domain.Sale, 0, len(s.sales))
	for i := len(s.sales) - 1; i >= 0; i-- {
		sales = append(sales, s.sales[i])
	}
	return sales, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) error {
	if strings.TrimSpace(sale.OrderNumber) == "" {
		return store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales = append(s.sales, sale)
	if err := s.saveSalesLocked(); err != nil {
		s.sales = s.sales[:len(s.sales)-1]
		return err
	}
	return nil
}

// indexByNumberLocked returns the newest row matching orderNumber, or -1.
func (s *Store) indexByNumberLocked(orderNumber string) int {
	for i := len(s.sales) - 1; i >= 0; i-- {
		if s.sales[i].OrderNumber == orderNumber {
			return i
		}
	}
	return -1
}

func (s *Store) UpdateSaleByNumber(_ context.Context, orderNumber string, sale domain.Sale) error {
	if strings.TrimSpace(sale.OrderNumber) == "" {
		return store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByNumberLocked(orderNumber)
	if idx < 0 {
		return store.ErrNotFound
	}

	previous := s.sales[idx]
	sale.CreatedAt = previous.CreatedAt
	s.sales[idx] = sale
	if err := s.saveSalesLocked(); err != nil {
		s.sales[idx] = previous
		return err
	}
	return nil
}

func (s *Store) DeleteSaleByNumber(_ context.Context, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByNumberLocked(orderNumber)
	if idx < 0 {
		return store.ErrNotFound
	}

	previous := s.sales
	s.sales = append(append([]domain.Sale{}, s.sales[:idx]...), s.sales[idx+1:]...)
	if err := s.saveSalesLocked(); err != nil {
		s.sales = previous
		return err
	}
	return nil
}

func (s *Store) SetPickupStatus(_ context.Context, orderNumber string, status string) error {
	switch status {
	case domain.PickupNo, domain.PickupPending, domain.PickupDelivered:
	default:
		return store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByNumberLocked(orderNumber)
	if idx < 0 {
		return store.ErrNotFound
	}

	previous := s.sales[idx].PickupLater
	s.sales[idx].PickupLater = status
	if err := s.saveSalesLocked(); err != nil {
		s.sales[idx].PickupLater = previous
		return err
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	login := strings.ToLower(strings.TrimSpace(user.Login))
	if login == "" {
		return store.ErrInvalidSale
	}
	user.Login = login

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[login]; exists {
		return store.ErrDuplicateUser
	}

	s.users[login] = user
	if err := s.saveUsersLocked(); err != nil {
		delete(s.users, login)
		return err
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) GetUserByLogin(_ context.Context, login string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[strings.ToLower(strings.TrimSpace(login))]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := user
	return &copied, nil
}

func (s *Store) DeleteUser(_ context.Context, login string) error {
	login = strings.ToLower(strings.TrimSpace(login))

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.users[login]
	if !ok {
		return store.ErrNotFound
	}

	delete(s.users, login)
	if err := s.saveUsersLocked(); err != nil {
		s.users[login] = previous
		return err
	}
	return nil
}

func (s *Store) UpdateUserPassword(_ context.Context, login string, password string) error {
	return s.mutateUser(login, func(user *domain.UserAccount) {
		user.Password = password
	})
}

func (s *Store) UpdateUserPhoto(_ context.Context, login string, photoURL string) error {
	return s.mutateUser(login, func(user *domain.UserAccount) {
		user.PhotoURL = photoURL
	})
}

func (s *Store) mutateUser(login string, apply func(*domain.UserAccount)) error {
	login = strings.ToLower(strings.TrimSpace(login))

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.users[login]
	if !ok {
		return store.ErrNotFound
	}

	updated := previous
	apply(&updated)
	s.users[login] = updated
	if err := s.saveUsersLocked(); err != nil {
		s.users[login] = previous
		return err
	}
	return nil
}
