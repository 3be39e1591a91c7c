package router

import (
	"context"
	"sync"

	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxRedirects = 10

// Middleware runs before every navigation. A non-empty redirect restarts
// navigation at that path; an error aborts it and the current page stays.
type Middleware func(ctx context.Context, to, from string) (redirect string, err error)

type Router struct {
	log *zap.Logger

	mu          sync.Mutex
	current     string
	middlewares []Middleware
	onChange    []func(path string)
}

func New(log *zap.Logger) *Router {
	return &Router{log: log.Named("router")}
}

func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	r.middlewares = append(r.middlewares, mw...)
	r.mu.Unlock()
}

// OnChange registers a callback fired after every completed navigation.
func (r *Router) OnChange(fn func(path string)) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Push navigates to path and returns the page it finally landed on.
func (r *Router) Push(ctx context.Context, path string) (string, error) {
	r.mu.Lock()
	from := r.current
	mws := append([]Middleware(nil), r.middlewares...)
	r.mu.Unlock()

	to := path
	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			return from, errors.Wrapf(errs.ErrRedirectLoop, "navigating to %s", path)
		}
		redirect, err := run(ctx, mws, to, from)
		if err != nil {
			r.log.Debug("navigation aborted", zap.String("to", to), zap.Error(err))
			return from, err
		}
		if redirect == "" || redirect == to {
			break
		}
		r.log.Debug("redirect", zap.String("from", to), zap.String("to", redirect))
		to = redirect
	}

	r.land(to)
	return to, nil
}

// Replace moves to path without running middleware. It is for leaving a
// page whose guard would consult state that is being torn down.
func (r *Router) Replace(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return r.Current(), err
	}
	r.land(path)
	return path, nil
}

func (r *Router) land(path string) {
	r.mu.Lock()
	r.current = path
	callbacks := make([]func(string), len(r.onChange))
	copy(callbacks, r.onChange)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(path)
	}
}

func run(ctx context.Context, mws []Middleware, to, from string) (string, error) {
	for _, mw := range mws {
		redirect, err := mw(ctx, to, from)
		if err != nil || redirect != "" {
			return redirect, err
		}
	}
	return "", nil
}
