package upbit

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"coinboard/internal/domain"
	"coinboard/internal/logging"
	upbitrepo "coinboard/internal/repository/upbit"
)

// DevSecret seals secrets when no key is configured outside production.
const DevSecret = "coinboard-dev-upbit-key"

// LinkInput is the payload for linking an Upbit account.
type LinkInput struct {
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
}

// AccountView is a linked account with its secret masked.
type AccountView struct {
	AccessKey string    `json:"accessKey"`
	SecretKey string    `json:"secretKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service manages the Upbit credentials linked to each user.
type Service struct {
	repo   upbitrepo.Repository
	sealer *sealer
	logger *zap.Logger
}

func New(repo upbitrepo.Repository, secret string, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger).Named("upbit")
	if secret == "" {
		logger.Warn("no upbit secret key configured, using development key")
		secret = DevSecret
	}
	return &Service{repo: repo, sealer: newSealer(secret), logger: logger}
}

// Link stores the keys for userID, replacing any previously linked pair.
func (s *Service) Link(ctx context.Context, userID int64, in LinkInput) (*AccountView, error) {
	in.AccessKey = strings.TrimSpace(in.AccessKey)
	in.SecretKey = strings.TrimSpace(in.SecretKey)

	verr := &domain.ValidationError{}
	if in.AccessKey == "" {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "accessKey", Rule: "required", Message: "is required"})
	}
	if in.SecretKey == "" {
		verr.Fields = append(verr.Fields, domain.FieldError{Field: "secretKey", Rule: "required", Message: "is required"})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	sealed, err := s.sealer.Seal(in.SecretKey)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Save(ctx, domain.UpbitAccount{UserID: userID, AccessKey: in.AccessKey, SecretKey: sealed})
	if err != nil {
		return nil, err
	}
	s.logger.Info("upbit account linked", zap.Int64("user_id", userID))
	return &AccountView{
		AccessKey: a.AccessKey,
		SecretKey: mask(in.SecretKey),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}, nil
}

// Get returns the linked account with the secret masked.
func (s *Service) Get(ctx context.Context, userID int64) (*AccountView, error) {
	a, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, err := s.sealer.Open(a.SecretKey)
	if err != nil {
		s.logger.Warn("upbit secret unreadable", zap.Int64("user_id", userID), zap.Error(err))
		secret = ""
	}
	return &AccountView{
		AccessKey: a.AccessKey,
		SecretKey: mask(secret),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}, nil
}

// Reveal returns the decrypted key pair.
func (s *Service) Reveal(ctx context.Context, userID int64) (accessKey, secretKey string, err error) {
	a, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return "", "", err
	}
	secret, err := s.sealer.Open(a.SecretKey)
	if err != nil {
		return "", "", err
	}
	return a.AccessKey, secret, nil
}

// Unlink removes the user's account. ErrNotFound when none is linked.
func (s *Service) Unlink(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	s.logger.Info("upbit account unlinked", zap.Int64("user_id", userID))
	return nil
}

// Exists reports whether userID has a linked account.
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	return s.repo.ExistsByUser(ctx, userID)
}

func mask(secret string) string {
	r := []rune(secret)
	if len(r) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + string(r[len(r)-4:])
}
