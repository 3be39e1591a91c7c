package devserver

import (
	"net/http"
	"strconv"

	"github.com/Astemirdum/library-loan-client/config"
	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/Astemirdum/library-loan-client/pkg/validate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Handler struct {
	store *Store
	cfg   config.DevServer
	log   *zap.Logger
	check *validator.Validate
}

func New(store *Store, cfg config.DevServer, log *zap.Logger) *Handler {
	return &Handler{
		store: store,
		cfg:   cfg,
		log:   log,
		check: validator.New(),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	rps := h.cfg.RPS
	if rps <= 0 {
		rps = 100
	}
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Validator = validate.NewCustomValidator()

	e.GET("/manage/health", h.Health)

	api := e.Group("/api",
		middleware.RequestID(),
		middleware.RequestLoggerWithConfig(requestLoggerConfig(h.log)),
		newRateLimiterMW(rate.Limit(rps)),
		csrfMW,
	)
	api.POST("/auth/login/", h.Login)
	api.POST("/auth/register/", h.Register)

	api = api.Group("", h.authMW)
	api.POST("/auth/logout/", h.Logout)
	api.GET("/users/me/", h.Me)
	api.GET("/books/", h.ListBooks)
	api.GET("/books/:id/", h.GetBook)
	api.POST("/loans/create/", h.CreateLoan)
	api.POST("/book-requests/", h.CreateBookRequest)
	api.GET("/book-requests/", h.ListBookRequests)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

func (h *Handler) startSession(c echo.Context, userID int) {
	sid := uuid.NewString()
	h.store.StartSession(sid, userID)
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// a new session gets a new CSRF token
	setCSRFCookie(c)
}

func (h *Handler) Login(c echo.Context) error {
	var creds model.LoginCredentials
	if err := c.Bind(&creds); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(creds); err != nil {
		return fail(c, http.StatusBadRequest, errInvalidCredentials.Error())
	}
	userID, err := h.store.Authenticate(creds.Username, creds.Password)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}
	u, err := h.store.User(userID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	h.startSession(c, userID)
	h.log.Info("login", zap.String("username", u.Username))

	return c.JSON(http.StatusOK, model.LoginResponse{
		UserID:   u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		Email:    u.Email,
		Profile:  u.Profile,
	})
}

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	fields := make(map[string]string)
	switch {
	case req.Username == "":
		fields["username"] = "Username is required"
	case h.store.UsernameTaken(req.Username):
		fields["username"] = "Username already exists"
	case len(req.Username) < 3:
		fields["username"] = "Username must be at least 3 characters long"
	}
	switch {
	case req.Email == "":
		fields["email"] = "Email is required"
	case h.check.Var(req.Email, "email") != nil:
		fields["email"] = "Invalid email format"
	case h.store.EmailTaken(req.Email):
		fields["email"] = "Email already in use"
	}
	switch {
	case req.Password == "":
		fields["password"] = "Password is required"
	case len(req.Password) < 8:
		fields["password"] = "Password must be at least 8 characters long"
	case req.Password != req.ConfirmPassword:
		fields["confirm_password"] = "Passwords do not match"
	}
	if len(fields) > 0 {
		return c.JSON(http.StatusBadRequest, errs.ValidationErrorResponse{Errors: fields})
	}

	userID, err := h.store.CreateUser(req.Username, req.Email, req.Password, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "An error occurred during registration",
			"details": err.Error(),
		})
	}
	h.startSession(c, userID)
	return c.JSON(http.StatusCreated, model.LoginResponse{
		UserID:   userID,
		Username: req.Username,
		Email:    req.Email,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		h.store.EndSession(cookie.Value)
	}
	c.SetCookie(&http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	return c.JSON(http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) Me(c echo.Context) error {
	u, err := h.store.User(currentUserID(c))
	if err != nil {
		return detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListBooks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Books())
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusNotFound, "Book not found")
	}
	book, err := h.store.Book(id)
	if err != nil {
		return fail(c, http.StatusNotFound, "Book not found")
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	loan, err := h.store.CreateLoan(currentUserID(c), req.BookID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return fail(c, http.StatusNotFound, "Invalid book or user ID")
	case err != nil:
		return fail(c, http.StatusBadRequest, err.Error())
	}
	h.log.Info("loan created", zap.Int("bookID", req.BookID), zap.Int("loanID", loan.ID))
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) CreateBookRequest(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	created, err := h.store.CreateRequest(currentUserID(c), req.BookID, req.Notes)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return fail(c, http.StatusNotFound, "Book not found")
	case err != nil:
		return fail(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListBookRequests(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Requests(currentUserID(c)))
}
