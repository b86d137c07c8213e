package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost: фиксированный work factor для паролей.
const DefaultBcryptCost = 10

// PasswordHasher хеширует пароли bcrypt'ом. Соль и cost лежат внутри самого хеша,
// поэтому для проверки больше ничего хранить не нужно.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password is empty")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt generate")
	}
	return string(b), nil
}

// Verify возвращает false без ошибки, если пароль не подошёл.
// Ошибка бывает только для битого хеша в базе.
func (h *PasswordHasher) Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errors.Wrap(err, "bcrypt compare: malformed stored hash")
	}
}

func (h *PasswordHasher) Cost() int { return h.cost }
