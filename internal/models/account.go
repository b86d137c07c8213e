package models

import "time"

// Account: учётная запись. Email неизменяем после создания.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     *string    `json:"username"`
	PasswordHash string     `json:"-"` // не отдаём наружу
	IsVerified   bool       `json:"is_verified"`
	Challenge    *Challenge `json:"-"` // ожидающий OTP, nil после подтверждения
	CreatedAt    time.Time  `json:"created_at"`
}

// Challenge: один код и один срок. Новый полностью заменяет старый.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

// Expired: строго now > expiresAt, ровно в момент expiresAt код ещё годен.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AccountPatch: частичное обновление. Применяется одним UPDATE'ом.
type AccountPatch struct {
	Verified       *bool
	Challenge      *Challenge
	ClearChallenge bool
}

func (p AccountPatch) Empty() bool {
	return p.Verified == nil && p.Challenge == nil && !p.ClearChallenge
}

// Apply нужен in-memory хранилищу и тестам.
func (p AccountPatch) Apply(a *Account) {
	if p.Verified != nil {
		a.IsVerified = *p.Verified
	}
	if p.ClearChallenge {
		a.Challenge = nil
	}
	if p.Challenge != nil {
		c := *p.Challenge
		a.Challenge = &c
	}
}

// Clone: глубокая копия, чтобы хранилище не делило указатели с вызывающим.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Username != nil {
		u := *a.Username
		cp.Username = &u
	}
	if a.Challenge != nil {
		c := *a.Challenge
		cp.Challenge = &c
	}
	return &cp
}
