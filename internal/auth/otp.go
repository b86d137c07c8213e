package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

const (
	OTPDigits = 6
	otpSpace  = 1_000_000 // 10^OTPDigits
)

// OTPGenerator выдаёт 6-значный код из crypto/rand.
// Никакого общего счётчика и seed'а: каждый вызов независим.
type OTPGenerator struct {
	entropy io.Reader
}

func NewOTPGenerator() *OTPGenerator {
	return &OTPGenerator{entropy: rand.Reader}
}

// NewOTPGeneratorWithReader нужен тестам, чтобы подсунуть детерминированный источник.
func NewOTPGeneratorWithReader(r io.Reader) *OTPGenerator {
	return &OTPGenerator{entropy: r}
}

// Generate: равномерно в [000000, 999999], с ведущими нулями.
func (g *OTPGenerator) Generate() (string, error) {
	n, err := rand.Int(g.entropy, big.NewInt(otpSpace))
	if err != nil {
		return "", errors.Wrap(err, "otp entropy")
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}
