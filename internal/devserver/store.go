package devserver

import (
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxActiveLoans = 5
	loanPeriod     = 14 * 24 * time.Hour
)

var (
	errInvalidCredentials = errors.New("Invalid credentials")
	errMaxLoans           = errors.New("User has reached maximum allowed loans")
	errNotAvailable       = errors.New("Book not available")
	errAlreadyLoaned      = errors.New("User already has this book on loan.")
	errPendingRequest     = errors.New("You already have a pending request for this book")
)

type user struct {
	ID           int
	Username     string
	Email        string
	FullName     string
	PasswordHash []byte
	IsStaff      bool
}

type loan struct {
	ID         int
	UserID     int
	BookID     int
	LoanDate   time.Time
	DueDate    time.Time
	ReturnDate *time.Time
}

type bookRequest struct {
	ID          int
	UserID      int
	BookID      int
	RequestDate time.Time
	Status      model.RequestStatus
	Notes       string
}

// Store keeps the whole library in memory.
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	hashCost   int
	users      map[int]*user
	books      map[int]*model.Book
	loans      []*loan
	requests   []*bookRequest
	sessions   map[string]int
	nextUserID int
	nextBookID int
	nextLoanID int
	nextReqID  int
}

func NewStore(now func() time.Time, hashCost int) *Store {
	if now == nil {
		now = time.Now
	}
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Store{
		now:        now,
		hashCost:   hashCost,
		users:      make(map[int]*user),
		books:      make(map[int]*model.Book),
		sessions:   make(map[string]int),
		nextUserID: 1,
		nextBookID: 1,
		nextLoanID: 1,
		nextReqID:  1,
	}
}

// LoadCatalog decodes a JSON array of books.
func LoadCatalog(r io.Reader) ([]model.Book, error) {
	var books []model.Book
	if err := jsoniter.NewDecoder(r).Decode(&books); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return books, nil
}

func (s *Store) AddBook(b model.Book) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextBookID
	s.nextBookID++
	if b.TotalCopies == 0 {
		b.TotalCopies = 1
	}
	if b.AvailableCopies == 0 || b.AvailableCopies > b.TotalCopies {
		b.AvailableCopies = b.TotalCopies
	}
	b.IsAvailable = nil
	b.CurrentLoans = nil
	s.books[b.ID] = &b
	return b
}

func (s *Store) CreateUser(username, email, password string, staff bool) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return 0, errors.Wrap(err, "hash password")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextUserID
	s.nextUserID++
	s.users[id] = &user{ID: id, Username: username, Email: email, PasswordHash: hash, IsStaff: staff}
	return id, nil
}

func (s *Store) UsernameTaken(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return true
		}
	}
	return false
}

func (s *Store) EmailTaken(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) Authenticate(username, password string) (int, error) {
	s.mu.RLock()
	var found *user
	for _, u := range s.users {
		if u.Username == username {
			found = u
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return 0, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(found.PasswordHash, []byte(password)); err != nil {
		return 0, errInvalidCredentials
	}
	return found.ID, nil
}

func (s *Store) StartSession(id string, userID int) {
	s.mu.Lock()
	s.sessions[id] = userID
	s.mu.Unlock()
}

func (s *Store) EndSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) SessionUser(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[id]
	return userID, ok
}

func (s *Store) User(userID int) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return model.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsStaff,
		Profile:  s.profile(u),
	}, nil
}

func (s *Store) Books() []model.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Book(id int) (model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	out := *b
	available := out.AvailableCopies > 0
	out.IsAvailable = &available
	for _, l := range s.loans {
		if l.BookID == id && l.ReturnDate == nil {
			out.CurrentLoans = append(out.CurrentLoans, s.loanView(l))
		}
	}
	return out, nil
}

func (s *Store) CreateLoan(userID, bookID int) (model.BookLoan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[bookID]
	if !ok {
		return model.BookLoan{}, errs.ErrNotFound
	}
	if s.activeLoans(userID) >= maxActiveLoans {
		return model.BookLoan{}, errMaxLoans
	}
	if b.AvailableCopies < 1 {
		return model.BookLoan{}, errNotAvailable
	}
	for _, l := range s.loans {
		if l.UserID == userID && l.BookID == bookID && l.ReturnDate == nil {
			return model.BookLoan{}, errAlreadyLoaned
		}
	}
	now := s.now()
	l := &loan{
		ID:       s.nextLoanID,
		UserID:   userID,
		BookID:   bookID,
		LoanDate: now,
		DueDate:  now.Add(loanPeriod),
	}
	s.nextLoanID++
	s.loans = append(s.loans, l)
	b.AvailableCopies--
	return s.loanView(l), nil
}

func (s *Store) CreateRequest(userID, bookID int, notes string) (model.BookRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[bookID]; !ok {
		return model.BookRequest{}, errs.ErrNotFound
	}
	for _, r := range s.requests {
		if r.UserID == userID && r.BookID == bookID && r.Status == model.RequestPending {
			return model.BookRequest{}, errPendingRequest
		}
	}
	r := &bookRequest{
		ID:          s.nextReqID,
		UserID:      userID,
		BookID:      bookID,
		RequestDate: s.now(),
		Status:      model.RequestPending,
		Notes:       notes,
	}
	s.nextReqID++
	s.requests = append(s.requests, r)
	return s.requestView(r), nil
}

func (s *Store) Requests(userID int) []model.BookRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.BookRequest, 0)
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].UserID == userID {
			out = append(out, s.requestView(s.requests[i]))
		}
	}
	return out
}

func (s *Store) activeLoans(userID int) int {
	n := 0
	for _, l := range s.loans {
		if l.UserID == userID && l.ReturnDate == nil {
			n++
		}
	}
	return n
}

func (s *Store) profile(u *user) model.UserProfile {
	p := model.UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		ActiveLoans: []model.BookLoan{},
		LoanHistory: []model.BookLoan{},
	}
	for i := len(s.loans) - 1; i >= 0; i-- {
		l := s.loans[i]
		if l.UserID != u.ID {
			continue
		}
		if l.ReturnDate == nil {
			p.ActiveLoans = append(p.ActiveLoans, s.loanView(l))
		} else {
			p.LoanHistory = append(p.LoanHistory, s.loanView(l))
		}
	}
	p.CanBorrow = len(p.ActiveLoans) < maxActiveLoans
	return p
}

func (s *Store) loanView(l *loan) model.BookLoan {
	v := model.BookLoan{
		ID:         l.ID,
		UserName:   s.users[l.UserID].Username,
		LoanDate:   l.LoanDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
	}
	if b, ok := s.books[l.BookID]; ok {
		v.Book = *b
	}
	now := s.now()
	switch {
	case l.ReturnDate != nil:
		v.Status = model.LoanReturned
	case l.DueDate.Before(now):
		v.Status = model.LoanOverdue
	default:
		v.Status = model.LoanActive
		v.DaysRemaining = int(l.DueDate.Sub(now) / (24 * time.Hour))
	}
	return v
}

func (s *Store) requestView(r *bookRequest) model.BookRequest {
	v := model.BookRequest{
		ID:          r.ID,
		UserName:    s.users[r.UserID].Username,
		RequestDate: r.RequestDate,
		Status:      r.Status,
		Notes:       r.Notes,
	}
	if b, ok := s.books[r.BookID]; ok {
		v.Book = *b
	}
	return v
}
