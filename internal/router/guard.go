package router

import (
	"context"

	"go.uber.org/zap"
)

//go:generate mockgen -source=guard.go -destination=mocks/checker.go -package=router_mocks

const (
	LoginPath = "/login/"
	BooksPath = "/books/"
)

type SessionChecker interface {
	CheckAuth(ctx context.Context) (bool, error)
}

// AuthGuard keeps anonymous users on the login page and sends signed in
// users away from it.
func AuthGuard(log *zap.Logger, checker SessionChecker) Middleware {
	return func(ctx context.Context, to, _ string) (string, error) {
		authed, err := checker.CheckAuth(ctx)
		if err != nil {
			return "", err
		}
		if to == LoginPath {
			if authed {
				log.Debug("already authenticated, redirecting to books")
				return BooksPath, nil
			}
			return "", nil
		}
		if !authed {
			log.Debug("not authenticated, redirecting to login", zap.String("to", to))
			return LoginPath, nil
		}
		return "", nil
	}
}
