package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinboard/internal/domain"
	tokenrepo "coinboard/internal/repository/token"
)

// memoryRepo is a lightweight in-memory user repository for tests.
type memoryRepo struct {
	byID        map[int64]domain.User
	nextID      int64
	createCalls int
}

type memoryTokenRepo struct {
	tokens map[string]tokenrepo.Token
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: make(map[int64]domain.User), nextID: 1}
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokenRepo) Create(_ context.Context, token tokenrepo.Token) error {
	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := t
	return &clone, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *memoryTokenRepo) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	r.createCalls++
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, domain.ErrAlreadyExists
		}
	}
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	r.byID[u.ID] = u
	return &u, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			clone := u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *memoryRepo) UpdateRole(_ context.Context, id int64, role domain.Role) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Role = role
	r.byID[id] = u
	return &u, nil
}

func newTestService() (*Service, *memoryRepo, *memoryTokenRepo) {
	repo := newMemoryRepo()
	tokens := newMemoryTokenRepo()
	return New(repo, tokens, time.Hour, nil), repo, tokens
}

func TestSignupAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Email: " Satoshi@Example.com ", Password: "Abcdefg1", Nickname: "satoshi"})
	require.NoError(t, err)
	assert.Equal(t, "satoshi@example.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "Abcdefg1", u.PasswordHash)

	got, token, err := svc.Login(ctx, "satoshi@example.com", "Abcdefg1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, token)

	me, err := svc.LookupByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)
}

func TestSignup_DefaultNickname(t *testing.T) {
	svc, _, _ := newTestService()
	u, err := svc.Signup(context.Background(), SignupInput{Email: "vitalik@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	assert.Equal(t, "vitalik", u.Nickname)
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Signup(context.Background(), SignupInput{Email: "not-an-email", Password: "short"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"email", "password"}, fields)

	_, err = svc.Signup(context.Background(), SignupInput{Email: "a@example.com", Password: "alllowercase1"})
	require.ErrorAs(t, err, &verr)
}

func TestSignup_Duplicate(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Email: "A@example.com", Password: "Abcdefg1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, 1, repo.createCalls, "taken email is rejected before insert")
}

func TestSignup_PasswordTooLong(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:    "long@example.com",
		Password: "Aa1" + strings.Repeat("x", 70),
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "password", verr.Fields[0].Field)
	assert.Zero(t, repo.createCalls)

	_, err = svc.Signup(context.Background(), SignupInput{
		Email:    "edge@example.com",
		Password: "Aa1" + strings.Repeat("x", 69),
	})
	require.NoError(t, err)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@example.com", "Wrong1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "Abcdefg1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLookupByToken_Expired(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "a@example.com", "Abcdefg1")
	require.NoError(t, err)

	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.LookupByToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotContains(t, tokens.tokens, token)

	_, err = svc.LookupByToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangeRole(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	target, err := svc.Signup(ctx, SignupInput{Email: "t@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)

	admin := domain.User{ID: 100, Role: domain.RoleAdmin}
	system := domain.User{ID: 101, Role: domain.RoleSystem}
	plain := domain.User{ID: 102, Role: domain.RoleUser}

	_, err = svc.ChangeRole(ctx, plain, target.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ChangeRole(ctx, admin, target.ID, domain.RoleSystem)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	u, err := svc.ChangeRole(ctx, admin, target.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = svc.ChangeRole(ctx, system, target.ID, domain.RoleSystem)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSystem, repo.byID[target.ID].Role)

	_, err = svc.ChangeRole(ctx, admin, target.ID, domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ChangeRole(ctx, system, target.ID, domain.Role("ROOT"))
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.ChangeRole(ctx, system, 999, domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChangeRole_RevokesTokens(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()
	target, err := svc.Signup(ctx, SignupInput{Email: "t@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "t@example.com", "Abcdefg1")
	require.NoError(t, err)
	admin := domain.User{ID: 100, Role: domain.RoleAdmin}

	_, err = svc.ChangeRole(ctx, admin, target.ID, domain.RoleUser)
	require.NoError(t, err)
	_, err = svc.LookupByToken(ctx, token)
	require.NoError(t, err, "unchanged role keeps tokens")

	_, err = svc.ChangeRole(ctx, admin, target.ID, domain.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.LookupByToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, tokens.tokens)
}

func TestEnsureUser(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	u, created, err := svc.EnsureUser(ctx, "admin@example.com", "Abcdefg1", "admin", domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	again, created, err := svc.EnsureUser(ctx, "admin@example.com", "Abcdefg1", "admin", domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	promoted, created, err := svc.EnsureUser(ctx, "admin@example.com", "Abcdefg1", "admin", domain.RoleSystem)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleSystem, promoted.Role)
}
