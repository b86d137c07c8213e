package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"secureauth/internal/models"
)

// MemoryAccountRepository: хранилище в памяти для dev-режима (database.driver: memory) и тестов.
// Транзакция устроена как оверлей: изменения копятся локально и применяются под
// одной блокировкой при коммите, так что долгая отправка письма никого не держит.
type MemoryAccountRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*models.Account
	byID    map[string]string // id -> email
	now     func() time.Time
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		byEmail: make(map[string]*models.Account),
		byID:    make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryAccountRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryAccountRepository) Insert(_ context.Context, a *models.Account) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(a)
}

func (r *MemoryAccountRepository) insertLocked(a *models.Account) (string, error) {
	if _, ok := r.byEmail[a.Email]; ok {
		return "", ErrDuplicateEmail
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	r.byEmail[a.Email] = a.Clone()
	r.byID[a.ID] = a.Email
	return a.ID, nil
}

func (r *MemoryAccountRepository) Update(_ context.Context, accountID string, patch models.AccountPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(accountID, patch)
}

func (r *MemoryAccountRepository) updateLocked(accountID string, patch models.AccountPatch) error {
	email, ok := r.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(r.byEmail[email])
	return nil
}

func (r *MemoryAccountRepository) findByIDLocked(accountID string) (*models.Account, bool) {
	email, ok := r.byID[accountID]
	if !ok {
		return nil, false
	}
	return r.byEmail[email], true
}

func (r *MemoryAccountRepository) WithTx(ctx context.Context, fn func(repo AccountRepository) error) error {
	tx := &memoryTx{parent: r, staged: make(map[string]*models.Account)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// Len: для тестов.
func (r *MemoryAccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}

type memoryUpdate struct {
	accountID string
	patch     models.AccountPatch
}

type memoryTx struct {
	parent   *MemoryAccountRepository
	staged   map[string]*models.Account // email -> рабочая копия
	inserted []*models.Account
	updates  []memoryUpdate
}

func (t *memoryTx) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if a, ok := t.staged[email]; ok {
		return a.Clone(), nil
	}
	return t.parent.FindByEmail(ctx, email)
}

func (t *memoryTx) Insert(ctx context.Context, a *models.Account) (string, error) {
	if _, ok := t.staged[a.Email]; ok {
		return "", ErrDuplicateEmail
	}
	if _, err := t.parent.FindByEmail(ctx, a.Email); err == nil {
		return "", ErrDuplicateEmail
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.parent.now()
	}
	cp := a.Clone()
	t.staged[a.Email] = cp
	t.inserted = append(t.inserted, cp)
	return a.ID, nil
}

func (t *memoryTx) Update(_ context.Context, accountID string, patch models.AccountPatch) error {
	var target *models.Account
	for _, a := range t.staged {
		if a.ID == accountID {
			target = a
			break
		}
	}
	if target == nil {
		t.parent.mu.RLock()
		a, ok := t.parent.findByIDLocked(accountID)
		if ok {
			target = a.Clone()
		}
		t.parent.mu.RUnlock()
		if target == nil {
			return ErrNotFound
		}
		t.staged[target.Email] = target
	}
	patch.Apply(target)
	t.updates = append(t.updates, memoryUpdate{accountID: accountID, patch: patch})
	return nil
}

func (t *memoryTx) WithTx(_ context.Context, fn func(repo AccountRepository) error) error {
	return fn(t)
}

// commit: вставки проверяются на дубликат ещё раз, патчи проигрываются
// поверх текущего состояния.
func (t *memoryTx) commit() error {
	p := t.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range t.inserted {
		if _, ok := p.byEmail[a.Email]; ok {
			return ErrDuplicateEmail
		}
	}
	for _, a := range t.inserted {
		p.byEmail[a.Email] = a.Clone()
		p.byID[a.ID] = a.Email
	}
	for _, u := range t.updates {
		if isInserted(t.inserted, u.accountID) {
			continue // уже в копии
		}
		if err := p.updateLocked(u.accountID, u.patch); err != nil {
			return err
		}
	}
	return nil
}

func isInserted(inserted []*models.Account, id string) bool {
	for _, a := range inserted {
		if a.ID == id {
			return true
		}
	}
	return false
}
