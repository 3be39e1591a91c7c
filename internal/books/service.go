package books

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/Astemirdum/library-loan-client/internal/api"
	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	booksEndpoint    = "/api/books/"
	loanEndpoint     = "/api/loans/create/"
	requestsEndpoint = "/api/book-requests/"

	fetchFailedPrefix = "Failed to fetch books: "
)

type Service struct {
	log   *zap.Logger
	api   api.Fetcher
	group singleflight.Group

	mu      sync.RWMutex
	books   []model.Book
	loading bool
	lastErr string
}

func NewService(log *zap.Logger, fetcher api.Fetcher) *Service {
	return &Service{
		log: log.Named("books"),
		api: fetcher,
	}
}

// Books returns a copy of the last successfully fetched catalog.
func (s *Service) Books() []model.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Book, len(s.books))
	copy(out, s.books)
	return out
}

func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed fetch, "" after a successful one.
func (s *Service) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// FetchBooks replaces the local catalog with the server's. Concurrent callers
// share one request.
func (s *Service) FetchBooks(ctx context.Context) error {
	_, err := s.shared(ctx, "fetch", s.fetchBooks)
	return err
}

// shared runs fn once for all concurrent callers of key. fn is detached from
// the cancellation of the caller that started it; every caller still stops
// waiting as soon as its own ctx is done.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) error) (bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return nil, fn(detached)
	})
	select {
	case res := <-ch:
		return res.Shared, res.Err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *Service) fetchBooks(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	list, err := api.Fetch[[]model.Book](ctx, s.api, booksEndpoint, api.Options{})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		msg := err.Error()
		if m, ok := errs.Message(err); ok {
			msg = m
		}
		s.lastErr = fetchFailedPrefix + msg
		return err
	}
	s.books = list
	return nil
}

// LoanBook borrows a book and refreshes the catalog. A second call for the
// same book while the first is in flight gets the first call's result
// instead of creating another loan.
func (s *Service) LoanBook(ctx context.Context, bookID int) (bool, error) {
	shared, err := s.shared(ctx, "loan:"+strconv.Itoa(bookID), func(ctx context.Context) error {
		return s.loanBook(ctx, bookID)
	})
	if shared {
		s.log.Debug("loan request collapsed", zap.Int("bookID", bookID))
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) loanBook(ctx context.Context, bookID int) error {
	err := s.api.Do(ctx, loanEndpoint, api.Options{
		Method: http.MethodPost,
		Body:   model.CreateLoanRequest{BookID: bookID},
	}, nil)
	if err == nil {
		err = s.fetchBooks(ctx)
	}
	if err == nil {
		s.log.Info("book loaned", zap.Int("bookID", bookID))
		return nil
	}
	s.log.Warn("loan failed", zap.Int("bookID", bookID), zap.Error(err))
	msg, _ := errs.Message(err)
	return &errs.LoanError{BookID: bookID, Message: msg, Cause: err}
}

func (s *Service) GetBook(ctx context.Context, bookID int) (model.Book, error) {
	book, err := api.Fetch[model.Book](ctx, s.api, fmt.Sprintf("%s%d/", booksEndpoint, bookID), api.Options{})
	if err != nil {
		if errs.StatusCode(err) == http.StatusNotFound {
			return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %d", bookID)
		}
		return model.Book{}, err
	}
	return book, nil
}

// RequestBook asks the librarians for a book, typically one with no copies left.
func (s *Service) RequestBook(ctx context.Context, bookID int, notes string) (model.BookRequest, error) {
	return api.Fetch[model.BookRequest](ctx, s.api, requestsEndpoint, api.Options{
		Method: http.MethodPost,
		Body:   model.CreateBookRequest{BookID: bookID, Notes: notes},
	})
}

func (s *Service) MyRequests(ctx context.Context) ([]model.BookRequest, error) {
	return api.Fetch[[]model.BookRequest](ctx, s.api, requestsEndpoint, api.Options{})
}
