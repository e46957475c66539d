package core

import (
	"net/http"
)

// StartServer 创建 http.Server
func StartServer(deps *RouterDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
