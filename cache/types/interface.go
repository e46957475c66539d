package types

import (
	"errors"
)

// ErrCacheMiss 缓存未命中错误
// 各缓存实现共享同一个哨兵，避免 cache 包与实现包循环引用
var ErrCacheMiss = &cacheMissError{}

type cacheMissError struct{}

func (e *cacheMissError) Error() string {
	return "cache miss"
}

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	var cacheMissError *cacheMissError
	ok := errors.As(err, &cacheMissError)
	return ok
}
