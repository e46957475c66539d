package utils

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"syscall"
)

// IsContextCanceled 检查错误是否是由于上下文取消导致的
func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}

	// 部分存储 SDK 只保留错误字符串
	return strings.Contains(err.Error(), "context canceled")
}

// IsClientDisconnect 检查错误是否是客户端断开连接
// 包括请求上下文取消、上传中途断开以及写回响应时对端重置
func IsClientDisconnect(err error) bool {
	if IsContextCanceled(err) {
		return true
	}
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return errors.Is(err, http.ErrBodyReadAfterClose)
}
