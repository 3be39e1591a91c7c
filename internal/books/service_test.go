package books_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Astemirdum/library-loan-client/internal/api"
	api_mocks "github.com/Astemirdum/library-loan-client/internal/api/mocks"
	"github.com/Astemirdum/library-loan-client/internal/books"
	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func returnBooks(bs []model.Book) func(context.Context, string, api.Options, interface{}) error {
	return func(_ context.Context, _ string, _ api.Options, out interface{}) error {
		*out.(*[]model.Book) = bs
		return nil
	}
}

func newService(t *testing.T) (*books.Service, *api_mocks.MockFetcher) {
	t.Helper()
	c := gomock.NewController(t)
	fetcher := api_mocks.NewMockFetcher(c)
	return books.NewService(zap.NewExample().Named("test"), fetcher), fetcher
}

func loanOpts(id int) api.Options {
	return api.Options{Method: http.MethodPost, Body: model.CreateLoanRequest{BookID: id}}
}

func TestService_FetchBooks(t *testing.T) {
	t.Parallel()

	t.Run("replaces list", func(t *testing.T) {
		t.Parallel()
		svc, fetcher := newService(t)
		gomock.InOrder(
			fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).DoAndReturn(returnBooks(catalog)),
			fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).DoAndReturn(returnBooks(catalog[:1])),
		)

		require.NoError(t, svc.FetchBooks(context.Background()))
		require.Equal(t, catalog, svc.Books())
		require.NoError(t, svc.FetchBooks(context.Background()))
		require.Equal(t, catalog[:1], svc.Books())
		require.Empty(t, svc.Err())
		require.False(t, svc.Loading())
	})

	t.Run("error kept and returned", func(t *testing.T) {
		t.Parallel()
		svc, fetcher := newService(t)
		gomock.InOrder(
			fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).DoAndReturn(returnBooks(catalog)),
			fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).
				Return(&errs.HTTPError{StatusCode: http.StatusForbidden, Message: "Authentication credentials were not provided."}),
		)

		require.NoError(t, svc.FetchBooks(context.Background()))
		err := svc.FetchBooks(context.Background())
		require.Equal(t, http.StatusForbidden, errs.StatusCode(err))
		require.Equal(t, "Failed to fetch books: Authentication credentials were not provided.", svc.Err())
		require.Equal(t, catalog, svc.Books())
	})
}

func TestService_LoanBook(t *testing.T) {
	t.Parallel()

	t.Run("ok refetches", func(t *testing.T) {
		t.Parallel()
		svc, fetcher := newService(t)
		after := []model.Book{{ID: 1, Title: "Dune", AvailableCopies: 0}}
		gomock.InOrder(
			fetcher.EXPECT().Do(gomock.Any(), "/api/loans/create/", loanOpts(1), nil).Return(nil),
			fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).DoAndReturn(returnBooks(after)),
		)

		ok, err := svc.LoanBook(context.Background(), 1)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, after, svc.Books())
	})

	t.Run("server message", func(t *testing.T) {
		t.Parallel()
		svc, fetcher := newService(t)
		fetcher.EXPECT().Do(gomock.Any(), "/api/loans/create/", loanOpts(2), nil).
			Return(&errs.HTTPError{StatusCode: http.StatusBadRequest, Message: "Book not available"})

		ok, err := svc.LoanBook(context.Background(), 2)
		require.False(t, ok)
		require.ErrorIs(t, err, errs.ErrLoanFailed)
		require.Equal(t, "Book not available", err.Error())
		require.Equal(t, http.StatusBadRequest, errs.StatusCode(err))
	})

	t.Run("generic fallback", func(t *testing.T) {
		t.Parallel()
		svc, fetcher := newService(t)
		fetcher.EXPECT().Do(gomock.Any(), "/api/loans/create/", loanOpts(3), nil).
			Return(errors.New("connection reset by peer"))

		ok, err := svc.LoanBook(context.Background(), 3)
		require.False(t, ok)
		require.ErrorIs(t, err, errs.ErrLoanFailed)
		require.Equal(t, "failed to loan book", err.Error())
	})

	t.Run("refetch failure fails the loan", func(t *testing.T) {
		t.Parallel()
		svc, fetcher := newService(t)
		gomock.InOrder(
			fetcher.EXPECT().Do(gomock.Any(), "/api/loans/create/", loanOpts(4), nil).Return(nil),
			fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).
				Return(&errs.HTTPError{StatusCode: http.StatusInternalServerError}),
		)

		_, err := svc.LoanBook(context.Background(), 4)
		require.ErrorIs(t, err, errs.ErrLoanFailed)
		require.Contains(t, svc.Err(), "Failed to fetch books")
	})
}

func TestService_LoanBook_ConcurrentCallsCollapse(t *testing.T) {
	t.Parallel()
	svc, fetcher := newService(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	fetcher.EXPECT().Do(gomock.Any(), "/api/loans/create/", loanOpts(5), nil).
		DoAndReturn(func(context.Context, string, api.Options, interface{}) error {
			close(entered)
			<-release
			return nil
		}).Times(1)
	fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).
		DoAndReturn(returnBooks(catalog)).Times(1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[0] = svc.LoanBook(context.Background(), 5)
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[1] = svc.LoanBook(context.Background(), 5)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, results[0])
	require.NoError(t, results[1])
}

func TestService_FetchBooks_JoinedCallerOutlivesCancelledLeader(t *testing.T) {
	t.Parallel()
	svc, fetcher := newService(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	requestErr := make(chan error, 1)

	fetcher.EXPECT().Do(gomock.Any(), "/api/books/", api.Options{}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ api.Options, out interface{}) error {
			close(entered)
			<-release
			requestErr <- ctx.Err()
			*out.(*[]model.Book) = catalog
			return nil
		}).Times(1)

	leaderCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = svc.FetchBooks(leaderCtx)
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = svc.FetchBooks(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.ErrorIs(t, results[0], context.Canceled)
	require.NoError(t, results[1])
	require.NoError(t, <-requestErr)
	require.Len(t, svc.Books(), len(catalog))
}

func TestService_GetBook(t *testing.T) {
	t.Parallel()
	svc, fetcher := newService(t)
	gomock.InOrder(
		fetcher.EXPECT().Do(gomock.Any(), "/api/books/1/", api.Options{}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ api.Options, out interface{}) error {
				*out.(*model.Book) = catalog[0]
				return nil
			}),
		fetcher.EXPECT().Do(gomock.Any(), "/api/books/42/", api.Options{}, gomock.Any()).
			Return(&errs.HTTPError{StatusCode: http.StatusNotFound, Message: "Book not found"}),
	)

	book, err := svc.GetBook(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, catalog[0], book)

	_, err = svc.GetBook(context.Background(), 42)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_BookRequests(t *testing.T) {
	t.Parallel()
	svc, fetcher := newService(t)
	created := model.BookRequest{ID: 3, Book: catalog[1], Status: model.RequestPending, Notes: "for class"}
	gomock.InOrder(
		fetcher.EXPECT().Do(gomock.Any(), "/api/book-requests/",
			api.Options{Method: http.MethodPost, Body: model.CreateBookRequest{BookID: 2, Notes: "for class"}}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ api.Options, out interface{}) error {
				*out.(*model.BookRequest) = created
				return nil
			}),
		fetcher.EXPECT().Do(gomock.Any(), "/api/book-requests/", api.Options{}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ api.Options, out interface{}) error {
				*out.(*[]model.BookRequest) = []model.BookRequest{created}
				return nil
			}),
	)

	req, err := svc.RequestBook(context.Background(), 2, "for class")
	require.NoError(t, err)
	require.Equal(t, created, req)

	list, err := svc.MyRequests(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.BookRequest{created}, list)
}
