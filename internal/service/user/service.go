package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"coinboard/internal/domain"
	"coinboard/internal/logging"
	tokenrepo "coinboard/internal/repository/token"
	userrepo "coinboard/internal/repository/user"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// Service handles signup, login and role management.
type Service struct {
	repo        userrepo.Repository
	tokens      *tokenManager
	accessTTL   time.Duration
	passwordMin int
	logger      *zap.Logger
}

// New creates a Service. A zero accessTTL selects 48 hours.
func New(repo userrepo.Repository, tokens tokenrepo.Repository, accessTTL time.Duration, logger *zap.Logger) *Service {
	if accessTTL <= 0 {
		accessTTL = 48 * time.Hour
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens),
		accessTTL:   accessTTL,
		passwordMin: 8,
		logger:      logging.OrNop(logger).Named("user"),
	}
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// Signup registers a new USER account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	return s.create(ctx, in, domain.RoleUser)
}

func (s *Service) create(ctx context.Context, in SignupInput, role domain.Role) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Password = strings.TrimSpace(in.Password)

	verr := &domain.ValidationError{}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "email", Rule: "email", Message: "must be a valid email address"})
	}
	if err := validate.Var(in.Nickname, "max=50"); err != nil {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "nickname", Rule: "max", Message: "must be at most 50 characters"})
	}
	if err := validatePassword(in.Password, s.passwordMin); err != nil {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "password", Rule: "password", Message: err.Error()})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	taken, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, domain.ErrAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if in.Nickname == "" {
		in.Nickname = strings.SplitN(in.Email, "@", 2)[0]
	}

	u, err := s.repo.Create(ctx, domain.User{
		Email:        in.Email,
		PasswordHash: string(hashed),
		Nickname:     in.Nickname,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.Int64("id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login validates credentials and returns an access token plus the user.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	password = strings.TrimSpace(password)
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(ctx, u.ID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return nil, "", err
	}
	return u, access, nil
}

// LookupByToken returns the user bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	userID, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// ChangeRole sets the role of userID on behalf of actor. Only SYSTEM may grant SYSTEM or
// touch a SYSTEM account; ADMIN may grant USER and ADMIN.
func (s *Service) ChangeRole(ctx context.Context, actor domain.User, userID int64, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "role", Rule: "oneof", Message: "must be one of USER ADMIN SYSTEM"},
		}}
	}
	if !actor.HasRole(domain.RoleAdmin) || !actor.HasRole(role) {
		return nil, domain.ErrForbidden
	}
	target, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(target.Role) {
		return nil, domain.ErrForbidden
	}
	if target.Role == role {
		return target, nil
	}

	updated, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	// Tokens issued under the old role must not outlive it.
	revoked, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("revoke tokens: %w", err)
	}
	s.logger.Info("user role changed",
		zap.Int64("id", userID),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)),
		zap.Int64("actor", actor.ID),
		zap.Int64("tokens_revoked", revoked),
	)
	return updated, nil
}

// EnsureUser creates the account if the email is free, otherwise aligns its role.
func (s *Service) EnsureUser(ctx context.Context, email, password, nickname string, role domain.Role) (*domain.User, bool, error) {
	if !role.Valid() {
		return nil, false, fmt.Errorf("ensure user: unknown role %q", role)
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == role {
			return existing, false, nil
		}
		u, err := s.repo.UpdateRole(ctx, existing.ID, role)
		return u, false, err
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	u, err := s.create(ctx, SignupInput{Email: email, Password: password, Nickname: nickname}, role)
	if errors.Is(err, domain.ErrAlreadyExists) {
		u, err = s.repo.GetByEmail(ctx, email)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	if len(trimmed) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
