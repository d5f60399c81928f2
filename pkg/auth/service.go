package auth

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/mernshop/storefront/pkg/global"
	"github.com/mernshop/storefront/pkg/models"
	"github.com/mernshop/storefront/pkg/telemetry"
)

// UserStore persists accounts. CreateUser reports a taken email as
// global.ErrDuplicate; FindUserByEmail reports a miss as global.ErrNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Result is the body returned by register and login.
type Result struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type Service struct {
	users      UserStore
	tokens     *Tokens
	bcryptCost int
	validate   *validator.Validate
	metrics    *telemetry.Metrics
}

func NewService(users UserStore, tokens *Tokens, bcryptCost int, metrics *telemetry.Metrics) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		metrics:    metrics,
	}
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, email, password string) (Result, error) {
	const op = "auth.register"

	res, err := s.register(ctx, op, global.NormalizeEmail(email), password)
	s.metrics.AuthAttempt("register", outcome(err))
	return res, err
}

func (s *Service) register(ctx context.Context, op, email, password string) (Result, error) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return Result{}, global.Errorf(global.EINVALID, op, "Valid email required")
	}
	if password == "" {
		return Result{}, global.Errorf(global.EINVALID, op, "Password required")
	}
	if len(password) > MaxPasswordBytes {
		return Result{}, global.Errorf(global.EINVALID, op, "Password must be at most %d bytes", MaxPasswordBytes)
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return Result{}, global.Errorf(global.ECONFLICT, op, "Email already registered")
	case !errors.Is(err, global.ErrNotFound):
		return Result{}, global.WrapError(err, global.EINTERNAL, op, "find user")
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return Result{}, global.WrapError(err, global.EINTERNAL, op, "hash password")
	}

	user := models.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		// lost a race with a concurrent registration of the same email
		if errors.Is(err, global.ErrDuplicate) {
			return Result{}, global.Errorf(global.ECONFLICT, op, "Email already registered")
		}
		return Result{}, global.WrapError(err, global.EINTERNAL, op, "create user")
	}

	zerolog.Ctx(ctx).Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	return s.issue(op, user)
}

// Login exchanges credentials for a fresh token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	const op = "auth.login"

	res, err := s.login(ctx, op, global.NormalizeEmail(email), password)
	s.metrics.AuthAttempt("login", outcome(err))
	return res, err
}

func (s *Service) login(ctx context.Context, op, email, password string) (Result, error) {
	if email == "" || password == "" {
		return Result{}, global.Errorf(global.EUNAUTHORIZED, op, "Invalid credentials")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, global.ErrNotFound) {
			return Result{}, global.Errorf(global.EUNAUTHORIZED, op, "Invalid credentials")
		}
		return Result{}, global.WrapError(err, global.EINTERNAL, op, "find user")
	}

	if err := VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return Result{}, global.Errorf(global.EUNAUTHORIZED, op, "Invalid credentials")
		}
		return Result{}, global.WrapError(err, global.EINTERNAL, op, "verify password")
	}

	return s.issue(op, user)
}

// Verify resolves a bearer token to the identity it was issued for.
func (s *Service) Verify(token string) (Identity, error) {
	const op = "auth.verify"

	if token == "" {
		return Identity{}, global.Errorf(global.EUNAUTHORIZED, op, "Unauthorized: token missing")
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		return Identity{}, global.WrapError(err, global.EUNAUTHORIZED, op, "Unauthorized: invalid token")
	}
	return id, nil
}

func (s *Service) issue(op string, user models.User) (Result, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return Result{}, global.WrapError(err, global.EINTERNAL, op, "issue token")
	}
	return Result{Token: token, User: user}, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return global.ErrorCode(err)
}
