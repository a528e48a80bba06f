package httpserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coinboard/internal/domain"
	upbitsvc "coinboard/internal/service/upbit"
	usersvc "coinboard/internal/service/user"
)

func logDiscard() *zap.Logger {
	return zap.NewNop()
}

type stubCategoryService struct {
	category *domain.Category
	list     []domain.Category
	tree     []domain.CategoryNode
	err      error

	gotReq  domain.CategoryRequest
	gotID   int64
	gotMode domain.DeleteMode
}

func (s *stubCategoryService) Create(_ context.Context, req domain.CategoryRequest) (*domain.Category, error) {
	s.gotReq = req
	return s.category, s.err
}

func (s *stubCategoryService) Update(_ context.Context, id int64, req domain.CategoryRequest) (*domain.Category, error) {
	s.gotID, s.gotReq = id, req
	return s.category, s.err
}

func (s *stubCategoryService) Delete(_ context.Context, id int64, mode domain.DeleteMode) error {
	s.gotID, s.gotMode = id, mode
	return s.err
}

func (s *stubCategoryService) Get(_ context.Context, id int64) (*domain.Category, error) {
	s.gotID = id
	return s.category, s.err
}

func (s *stubCategoryService) GetByName(_ context.Context, _ string) (*domain.Category, error) {
	return s.category, s.err
}

func (s *stubCategoryService) ListRoots(context.Context) ([]domain.Category, error) {
	return s.list, s.err
}

func (s *stubCategoryService) ListChildren(_ context.Context, parentID int64) ([]domain.Category, error) {
	s.gotID = parentID
	return s.list, s.err
}

func (s *stubCategoryService) ListTree(context.Context) ([]domain.CategoryNode, error) {
	return s.tree, s.err
}

// stubUserService resolves every token in tokens to its user.
type stubUserService struct {
	tokens   map[string]domain.User
	user     *domain.User
	loginErr error
	err      error
}

func (s *stubUserService) Signup(_ context.Context, in usersvc.SignupInput) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: 1, Email: in.Email, Nickname: in.Nickname, Role: domain.RoleUser, CreatedAt: time.Now()}, nil
}

func (s *stubUserService) Login(_ context.Context, _, _ string) (*domain.User, string, error) {
	if s.loginErr != nil {
		return nil, "", s.loginErr
	}
	return s.user, "access", nil
}

func (s *stubUserService) LookupByToken(_ context.Context, token string) (*domain.User, error) {
	u, ok := s.tokens[token]
	if !ok {
		return nil, usersvc.ErrInvalidToken
	}
	return &u, nil
}

func (s *stubUserService) ChangeRole(_ context.Context, _ domain.User, userID int64, role domain.Role) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: userID, Role: role}, nil
}

func (s *stubUserService) AccessTTLSeconds() int {
	return 3600
}

type stubUpbitService struct {
	view   *upbitsvc.AccountView
	linked bool
	err    error
}

func (s *stubUpbitService) Link(_ context.Context, _ int64, in upbitsvc.LinkInput) (*upbitsvc.AccountView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &upbitsvc.AccountView{AccessKey: in.AccessKey, SecretKey: "****"}, nil
}

func (s *stubUpbitService) Get(context.Context, int64) (*upbitsvc.AccountView, error) {
	return s.view, s.err
}

func (s *stubUpbitService) Unlink(context.Context, int64) error {
	return s.err
}

func (s *stubUpbitService) Exists(context.Context, int64) (bool, error) {
	return s.linked, s.err
}

var (
	testAdmin = domain.User{ID: 10, Email: "admin@example.com", Role: domain.RoleAdmin}
	testUser  = domain.User{ID: 11, Email: "user@example.com", Role: domain.RoleUser}
)

func defaultUsers() *stubUserService {
	return &stubUserService{tokens: map[string]domain.User{
		"admin-token": testAdmin,
		"user-token":  testUser,
	}}
}
