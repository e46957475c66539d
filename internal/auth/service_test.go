package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/database/models"
	"github.com/kinnrichard/image-uploader/database/repo/accounts"
	cryptopackage "github.com/kinnrichard/image-uploader/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupService(t *testing.T) (*Service, *accounts.Repository) {
	t.Helper()

	provider, err := database.NewGormProvider(&config.Config{
		DBType:     "sqlite",
		DBFilePath: filepath.Join(t.TempDir(), "auth.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(provider))
	t.Cleanup(func() { _ = provider.Close() })

	repo := accounts.NewRepository(provider)
	svc, err := NewService(repo, cryptopackage.NewHasher(bcrypt.MinCost))
	require.NoError(t, err)
	return svc, repo
}

// brokenStore 模拟数据库故障
type brokenStore struct{}

func (brokenStore) CreateUser(context.Context, *models.User) error {
	return errors.New("disk I/O error")
}

func (brokenStore) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errors.New("disk I/O error")
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password)

	stored, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret")))
}

func TestRegister_SamePasswordDifferentHashes(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "u1", "same")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "u2", "same")
	require.NoError(t, err)

	a, err := repo.GetUserByUsername(ctx, "u1")
	require.NoError(t, err)
	b, err := repo.GetUserByUsername(ctx, "u2")
	require.NoError(t, err)
	assert.NotEqual(t, a.Password, b.Password)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob", "pw1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "bob", "pw2")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	// 原密码仍然有效
	_, err = svc.Login(ctx, "bob", "pw1")
	assert.NoError(t, err)
}

func TestRegister_ConcurrentSameUsername(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "racer", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicateUsername):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)

	stored, err := repo.GetUserByUsername(ctx, "racer")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Password)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"empty password", "carol", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrMissingCredentials)
		})
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Register(context.Background(), "dave", strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestRegister_StoreFailure(t *testing.T) {
	svc, err := NewService(brokenStore{}, cryptopackage.NewHasher(bcrypt.MinCost))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "erin", "pw")
	assert.ErrorIs(t, err, ErrStore)

	_, err = svc.Login(context.Background(), "erin", "pw")
	assert.ErrorIs(t, err, ErrStore)
}

func TestLogin_Success(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "frank", "correct horse")
	require.NoError(t, err)

	user, err := svc.Login(ctx, "frank", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "frank", user.Username)
	assert.Empty(t, user.Password)
}

func TestLogin_UndifferentiatedFailure(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "grace", "right")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "grace", "wrong")
	_, unknownUser := svc.Login(ctx, "nobody", "right")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = svc.Login(context.Background(), "heidi", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
