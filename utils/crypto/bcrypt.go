package cryptopackage

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost 默认的 bcrypt 计算成本
const DefaultCost = 10

// ErrPasswordTooLong bcrypt 只接受不超过 72 字节的密码
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher bcrypt 密码哈希器
type Hasher struct {
	cost int
}

// NewHasher 创建密码哈希器，cost 超出 bcrypt 范围时使用默认值
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost 返回当前计算成本
func (h *Hasher) Cost() int {
	return h.cost
}

// GenerateFromPassword 生成带随机盐的哈希，结果自描述算法与成本
func (h *Hasher) GenerateFromPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePasswordAndHash 校验明文密码与哈希是否匹配
// 不匹配时返回 (false, nil)，哈希格式损坏时返回错误
func (h *Hasher) ComparePasswordAndHash(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare password hash: %w", err)
}
