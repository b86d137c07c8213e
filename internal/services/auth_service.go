package services

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"secureauth/internal/auth"
	"secureauth/internal/models"
	"secureauth/internal/repositories"
)

const DefaultChallengeTTL = 10 * time.Minute

type AuthService interface {
	Register(ctx context.Context, email, password string) (*RegisterResult, error)
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	VerifyChallenge(ctx context.Context, identity *auth.Identity, email, code string) error
	ReissueChallenge(ctx context.Context, identity *auth.Identity, email string) error
}

type RegisterResult struct {
	Token   string
	Account *models.Account
}

type AuthResult struct {
	Token      string
	IsVerified bool
	Username   *string
}

type authService struct {
	repo       repositories.AccountRepository
	hasher     *auth.PasswordHasher
	otp        *auth.OTPGenerator
	tokens     *auth.TokenIssuer
	dispatcher ChallengeDispatcher

	challengeTTL time.Duration
	strictScope  bool
	now          func() time.Time
}

type AuthOption func(*authService)

func WithClock(now func() time.Time) AuthOption {
	return func(s *authService) { s.now = now }
}

func WithChallengeTTL(ttl time.Duration) AuthOption {
	return func(s *authService) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

// WithStrictTokenScope: при true verify/resend принимают только email из токена.
func WithStrictTokenScope(strict bool) AuthOption {
	return func(s *authService) { s.strictScope = strict }
}

func NewAuthService(
	repo repositories.AccountRepository,
	hasher *auth.PasswordHasher,
	otp *auth.OTPGenerator,
	tokens *auth.TokenIssuer,
	dispatcher ChallengeDispatcher,
	opts ...AuthOption,
) AuthService {
	s := &authService{
		repo:         repo,
		hasher:       hasher,
		otp:          otp,
		tokens:       tokens,
		dispatcher:   dispatcher,
		challengeTTL: DefaultChallengeTTL,
		strictScope:  true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authService) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidInput, "email and password are required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	code, err := s.otp.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "generate otp")
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: hash,
		Challenge:    &models.Challenge{Code: code, ExpiresAt: s.now().Add(s.challengeTTL)},
	}

	// вставка и письмо в одной транзакции: не ушло письмо, нет и аккаунта
	err = s.repo.WithTx(ctx, func(tx repositories.AccountRepository) error {
		if _, err := tx.FindByEmail(ctx, email); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		if _, err := tx.Insert(ctx, account); err != nil {
			return err
		}
		return s.dispatch(ctx, email, code, ChallengeInitial)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) || errors.Is(err, repositories.ErrDuplicateEmail) {
			log.Info().Str("email", email).Msg("[auth][register] email already registered")
		}
		return nil, translate(err, "register")
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	log.Info().Str("account_id", account.ID).Msg("[auth][register] account created, challenge sent")
	return &RegisterResult{Token: token, Account: account}, nil
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidInput, "email and password are required")
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, translate(err, "authenticate")
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, errors.Wrapf(err, "account %s", account.ID)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &AuthResult{Token: token, IsVerified: account.IsVerified, Username: account.Username}, nil
}

func (s *authService) VerifyChallenge(ctx context.Context, identity *auth.Identity, email, code string) error {
	email = strings.TrimSpace(email)
	if err := s.checkScope(identity, email); err != nil {
		return err
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return translate(err, "verify")
	}

	// сначала совпадение кода, потом срок
	ch := account.Challenge
	if ch == nil || subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		return ErrCodeMismatch
	}
	if ch.Expired(s.now()) {
		return ErrChallengeExpired
	}

	verified := true
	if err := s.repo.Update(ctx, account.ID, models.AccountPatch{Verified: &verified, ClearChallenge: true}); err != nil {
		return translate(err, "verify")
	}
	log.Info().Str("account_id", account.ID).Msg("[auth][verify] account verified")
	return nil
}

func (s *authService) ReissueChallenge(ctx context.Context, identity *auth.Identity, email string) error {
	email = strings.TrimSpace(email)
	if err := s.checkScope(identity, email); err != nil {
		return err
	}

	code, err := s.otp.Generate()
	if err != nil {
		return errors.Wrap(err, "generate otp")
	}
	challenge := &models.Challenge{Code: code, ExpiresAt: s.now().Add(s.challengeTTL)}

	var accountID string
	err = s.repo.WithTx(ctx, func(tx repositories.AccountRepository) error {
		account, err := tx.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		accountID = account.ID
		if err := tx.Update(ctx, account.ID, models.AccountPatch{Challenge: challenge}); err != nil {
			return err
		}
		return s.dispatch(ctx, email, code, ChallengeReissue)
	})
	if err != nil {
		return translate(err, "reissue")
	}
	log.Info().Str("account_id", accountID).Msg("[auth][resend] new challenge sent")
	return nil
}

func (s *authService) checkScope(identity *auth.Identity, email string) error {
	if identity == nil {
		return ErrInvalidToken
	}
	if email == "" {
		return errors.Wrap(ErrInvalidInput, "email is required")
	}
	if s.strictScope && identity.Email != email {
		log.Warn().Str("account_id", identity.AccountID).Msg("[auth][scope] token email does not match request email")
		return ErrInvalidToken
	}
	return nil
}

func (s *authService) dispatch(ctx context.Context, to, code string, kind ChallengeKind) error {
	if err := s.dispatcher.Send(ctx, to, code, kind); err != nil {
		log.Error().Err(err).Str("kind", kind.String()).Msg("[auth][email] dispatch failed")
		return errors.Wrap(ErrDeliveryFailed, err.Error())
	}
	return nil
}

// translate переводит ошибки хранилища в ошибки сервиса; свои ошибки проходят как есть.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return errors.Wrap(ErrAlreadyExists, op)
	case errors.Is(err, repositories.ErrNotFound):
		return errors.Wrap(ErrAccountNotFound, op)
	case errors.Is(err, repositories.ErrUnavailable):
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	default:
		return errors.Wrap(err, op)
	}
}
