package devserver

import (
	"strings"
	"testing"
	"time"

	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStore_CreateLoan_MaxActive(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, bcrypt.MinCost)
	userID, err := s.CreateUser("reader", "reader@library.local", "library123", false)
	require.NoError(t, err)
	for i := 0; i < maxActiveLoans+1; i++ {
		s.AddBook(model.Book{Title: "book", TotalCopies: 1})
	}
	for id := 1; id <= maxActiveLoans; id++ {
		_, err = s.CreateLoan(userID, id)
		require.NoError(t, err)
	}
	_, err = s.CreateLoan(userID, maxActiveLoans+1)
	require.ErrorIs(t, err, errMaxLoans)

	u, err := s.User(userID)
	require.NoError(t, err)
	require.False(t, u.Profile.CanBorrow)
	require.Len(t, u.Profile.ActiveLoans, maxActiveLoans)
}

func TestStore_LoanStatus(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(func() time.Time { return now }, bcrypt.MinCost)
	userID, err := s.CreateUser("reader", "reader@library.local", "library123", false)
	require.NoError(t, err)
	book := s.AddBook(model.Book{Title: "Dune", TotalCopies: 2})

	loan, err := s.CreateLoan(userID, book.ID)
	require.NoError(t, err)
	require.Equal(t, now.Add(14*24*time.Hour), loan.DueDate)
	require.Equal(t, 14, loan.DaysRemaining)

	got, err := s.Book(book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.AvailableCopies)
	require.Len(t, got.CurrentLoans, 1)

	now = now.Add(15 * 24 * time.Hour)
	got, err = s.Book(book.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanOverdue, got.CurrentLoans[0].Status)
	require.Zero(t, got.CurrentLoans[0].DaysRemaining)
}

func TestStore_Authenticate(t *testing.T) {
	t.Parallel()
	s := NewStore(nil, bcrypt.MinCost)
	id, err := s.CreateUser("reader", "reader@library.local", "library123", false)
	require.NoError(t, err)

	got, err := s.Authenticate("reader", "library123")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = s.Authenticate("reader", "library124")
	require.ErrorIs(t, err, errInvalidCredentials)

	require.True(t, s.EmailTaken("READER@library.local"))
	require.False(t, s.UsernameTaken("Reader"))

	_, err = s.User(42)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()
	books, err := LoadCatalog(strings.NewReader(
		`[{"title":"Dune","author":"Frank Herbert","isbn":"9780441013593","total_copies":2}]`))
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "Dune", books[0].Title)
	require.Equal(t, 2, books[0].TotalCopies)

	_, err = LoadCatalog(strings.NewReader(`{`))
	require.Error(t, err)
}
