package auth

import (
	"context"
	"net/http"
	"sync"

	"github.com/Astemirdum/library-loan-client/internal/api"
	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:generate mockgen -source=service.go -destination=mocks/navigator.go -package=auth_mocks

const (
	PathLogin = "/login/"
	PathBooks = "/books/"

	sessionEndpoint  = "/api/users/me/"
	loginEndpoint    = "/api/auth/login/"
	logoutEndpoint   = "/api/auth/logout/"
	registerEndpoint = "/api/auth/register/"
)

type State uint8

const (
	Anonymous State = iota
	Loading
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Navigator moves the client to another page and reports where it ended up.
// Push runs navigation middleware and follows its redirects, Replace does not.
type Navigator interface {
	Push(ctx context.Context, path string) (string, error)
	Replace(ctx context.Context, path string) (string, error)
}

type Service struct {
	log      *zap.Logger
	api      api.Fetcher
	nav      Navigator
	validate *validator.Validate

	mu            sync.RWMutex
	user          *model.User
	authenticated bool
	loading       bool
}

func NewService(log *zap.Logger, fetcher api.Fetcher, nav Navigator) *Service {
	return &Service{
		log:      log.Named("auth"),
		api:      fetcher,
		nav:      nav,
		validate: validator.New(),
	}
}

// User returns a copy of the signed in user, nil when anonymous.
func (s *Service) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.loading:
		return Loading
	case s.authenticated:
		return Authenticated
	default:
		return Anonymous
	}
}

// CheckAuth asks the backend who owns the current session. 401 and 403 mean
// "nobody" and are not errors.
func (s *Service) CheckAuth(ctx context.Context) (bool, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	user, err := api.Fetch[model.User](ctx, s.api, sessionEndpoint, api.Options{Method: http.MethodGet})
	if err != nil {
		s.clear()
		if errs.IsAuthStatus(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "authentication check failed")
	}
	if user.Username == "" {
		s.clear()
		return false, nil
	}
	s.setUser(user)
	return true, nil
}

func (s *Service) Login(ctx context.Context, creds model.LoginCredentials) (bool, error) {
	if err := s.validate.Struct(creds); err != nil {
		return false, errors.Wrap(err, "login")
	}
	resp, err := api.Fetch[model.LoginResponse](ctx, s.api, loginEndpoint, api.Options{
		Method: http.MethodPost,
		Body:   creds,
	})
	if err != nil {
		if errs.StatusCode(err) == http.StatusForbidden {
			return false, errs.ErrCSRFVerification
		}
		s.log.Error("login failed", zap.String("username", creds.Username), zap.Error(err))
		return false, err
	}
	if resp.Username == "" {
		return false, nil
	}
	s.setUser(resp.User())
	s.log.Info("logged in", zap.String("username", resp.Username))

	if _, err := s.nav.Push(ctx, PathBooks); err != nil {
		return true, errors.Wrap(err, "navigate after login")
	}
	return true, nil
}

// Register creates an account; the backend signs the new user in right away.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return false, errors.Wrap(err, "register")
	}
	resp, err := api.Fetch[model.LoginResponse](ctx, s.api, registerEndpoint, api.Options{
		Method: http.MethodPost,
		Body:   req,
	})
	if err != nil {
		if errs.StatusCode(err) == http.StatusForbidden {
			return false, errs.ErrCSRFVerification
		}
		return false, err
	}
	if resp.Username == "" {
		return false, nil
	}
	s.setUser(resp.User())
	s.log.Info("registered", zap.String("username", resp.Username))

	if _, err := s.nav.Push(ctx, PathBooks); err != nil {
		return true, errors.Wrap(err, "navigate after register")
	}
	return true, nil
}

// Logout never reports a failed logout request: local state is dropped and
// the client is sent to the login page no matter what. The move skips the
// route guard, which would otherwise restore the user from a session the
// server failed to end. Only a failed navigation is returned.
func (s *Service) Logout(ctx context.Context) (err error) {
	defer func() {
		s.clear()
		if _, navErr := s.nav.Replace(ctx, PathLogin); navErr != nil {
			err = errors.Wrap(navErr, "navigate after logout")
		}
	}()

	if reqErr := s.api.Do(ctx, logoutEndpoint, api.Options{Method: http.MethodPost}, nil); reqErr != nil {
		s.log.Warn("logout request failed", zap.Error(reqErr))
	}
	return nil
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Service) setUser(u model.User) {
	s.mu.Lock()
	s.user = &u
	s.authenticated = true
	s.mu.Unlock()
}

func (s *Service) clear() {
	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()
}
