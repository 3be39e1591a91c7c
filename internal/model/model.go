package model

import (
	"time"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
)

type User struct {
	ID       int         `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	IsAdmin  bool        `json:"is_admin"`
	Profile  UserProfile `json:"profile"`
}

type UserProfile struct {
	ID          int        `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	ActiveLoans []BookLoan `json:"active_loans"`
	LoanHistory []BookLoan `json:"loans"`
	CanBorrow   bool       `json:"can_borrow"`
}

type Book struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Description     string     `json:"description,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	AvailableCopies int        `json:"available_copies"`
	TotalCopies     int        `json:"total_copies"`
	IsAvailable     *bool      `json:"is_available,omitempty"`
	CurrentLoans    []BookLoan `json:"current_loans,omitempty"`
}

type BookLoan struct {
	ID            int        `json:"id"`
	Book          Book       `json:"book"`
	UserName      string     `json:"user_name"`
	LoanDate      time.Time  `json:"loan_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date"`
	Status        LoanStatus `json:"status"`
	DaysRemaining int        `json:"days_remaining"`
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

type BookRequest struct {
	ID           int           `json:"id"`
	Book         Book          `json:"book"`
	UserName     string        `json:"user_name"`
	RequestDate  time.Time     `json:"request_date"`
	Status       RequestStatus `json:"status"`
	Notes        string        `json:"notes"`
	ResponseDate *time.Time    `json:"response_date"`
}

type LoginCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	UserID   int         `json:"user_id"`
	Username string      `json:"username"`
	IsAdmin  bool        `json:"is_admin"`
	Email    string      `json:"email"`
	Profile  UserProfile `json:"profile"`
}

func (r LoginResponse) User() User {
	return User{
		ID:       r.UserID,
		Username: r.Username,
		Email:    r.Email,
		IsAdmin:  r.IsAdmin,
		Profile:  r.Profile,
	}
}

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type CreateLoanRequest struct {
	BookID int `json:"book_id" validate:"required"`
}

type CreateBookRequest struct {
	BookID int    `json:"book_id" validate:"required"`
	Notes  string `json:"notes"`
}
