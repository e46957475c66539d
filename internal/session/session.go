package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kinnrichard/image-uploader/cache"
	"github.com/kinnrichard/image-uploader/utils"
)

const tokenLength = 32

// DefaultTTL 默认会话有效期
const DefaultTTL = 24 * time.Hour

var (
	// ErrNoSession 会话不存在或已过期
	ErrNoSession = errors.New("no active session")
	// ErrStore 会话存储不可用
	ErrStore = errors.New("session store unavailable")
)

// Session 会话记录
type Session struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 判断会话是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Manager 会话管理器，令牌为随机不透明字符串，会话数据保存在缓存中
type Manager struct {
	store   cache.Provider
	ttl     time.Duration
	rolling bool
	now     func() time.Time
}

// NewManager 创建会话管理器
func NewManager(store cache.Provider, ttl time.Duration, rolling bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:   store,
		ttl:     ttl,
		rolling: rolling,
		now:     time.Now,
	}
}

// TTL 返回会话有效期
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create 为用户创建会话，返回会话令牌
func (m *Manager) Create(ctx context.Context, userID uint, username string) (string, *Session, error) {
	token, err := utils.GenerateRandomToken(tokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := m.now()
	sess := &Session{
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.store.Set(ctx, cache.Session.Build(token), sess, m.ttl); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return token, sess, nil
}

// Get 按令牌查找会话，开启滚动续期时刷新过期时间
func (m *Manager) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	key := cache.Session.Build(token)
	var sess Session
	if err := m.store.Get(ctx, key, &sess); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	now := m.now()
	if sess.Expired(now) {
		_ = m.store.Delete(ctx, key)
		return nil, ErrNoSession
	}

	if m.rolling {
		sess.ExpiresAt = now.Add(m.ttl)
		if err := m.store.Set(ctx, key, &sess, m.ttl); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
	}

	return &sess, nil
}

// Destroy 销毁会话，令牌不存在时不报错
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, cache.Session.Build(token)); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// Health 检查会话存储
func (m *Manager) Health(ctx context.Context) error {
	return m.store.Health(ctx)
}
