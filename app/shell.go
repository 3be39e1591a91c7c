package app

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Astemirdum/library-loan-client/config"
	"github.com/Astemirdum/library-loan-client/internal/api"
	"github.com/Astemirdum/library-loan-client/internal/auth"
	"github.com/Astemirdum/library-loan-client/internal/books"
	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/Astemirdum/library-loan-client/internal/router"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errQuit = errors.New("quit")

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

// Shell is the interactive front end. It keeps one cookie jar, one router
// and one set of services for its whole life, the way a browser tab does.
type Shell struct {
	log    *zap.Logger
	out    io.Writer
	router *router.Router
	auth   *auth.Service
	books  *books.Service

	commands map[string]command
}

func NewShell(log *zap.Logger, cfg config.API, out io.Writer) (*Shell, error) {
	client, err := api.NewClient(log, cfg)
	if err != nil {
		return nil, err
	}
	r := router.New(log)
	authSvc := auth.NewService(log, client, r)
	r.Use(router.AuthGuard(log.Named("guard"), authSvc))
	r.OnChange(func(path string) {
		log.Debug("page", zap.String("path", path))
	})

	s := &Shell{
		log:    log.Named("shell"),
		out:    out,
		router: r,
		auth:   authSvc,
		books:  books.NewService(log, client),
	}
	s.commands = map[string]command{
		"open":     {"open <path>", s.open},
		"whoami":   {"whoami", s.whoami},
		"login":    {"login <username> <password>", s.login},
		"register": {"register <username> <email> <password>", s.register},
		"logout":   {"logout", s.logout},
		"books":    {"books [-available] [query]", s.listBooks},
		"book":     {"book <id>", s.book},
		"loan":     {"loan <id>", s.loan},
		"request":  {"request <id> [notes]", s.request},
		"requests": {"requests", s.requests},
		"overview": {"overview", s.overview},
		"help":     {"help", s.help},
		"quit":     {"quit", func(context.Context, []string) error { return errQuit }},
	}
	return s, nil
}

// Run reads commands line by line until quit, EOF or ctx is done.
// When ctx ends first and in is an io.Closer, in is closed to unblock the
// reader; any other reader keeps its goroutine until the next line or EOF.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	if err := s.Exec(ctx, "open "+router.LoginPath); err != nil {
		s.printErr(err)
	}

	done := make(chan struct{})
	defer close(done)
	if closer, ok := in.(io.Closer); ok {
		go func() {
			select {
			case <-ctx.Done():
			case <-done:
			}
			if ctx.Err() != nil {
				_ = closer.Close()
			}
		}()
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		s.prompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return errors.Wrap(err, "read input")
				default:
					return nil
				}
			}
			err := s.Exec(ctx, line)
			if errors.Is(err, errQuit) {
				fmt.Fprintln(s.out, "bye")
				return nil
			}
			if err != nil {
				s.printErr(err)
			}
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := fields[0]
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := s.commands[name]
	if !ok {
		return errors.Errorf("unknown command %q, try help", fields[0])
	}
	return cmd.run(ctx, fields[1:])
}

func (s *Shell) prompt() {
	fmt.Fprintf(s.out, "%s> ", s.router.Current())
}

func (s *Shell) printErr(err error) {
	fmt.Fprintf(s.out, "error: %s\n", err)
}

// enter navigates to a guarded page and reports whether the guard let us in.
func (s *Shell) enter(ctx context.Context, path string) (bool, error) {
	landed, err := s.router.Push(ctx, path)
	if err != nil {
		return false, err
	}
	if landed != path {
		fmt.Fprintf(s.out, "not logged in, redirected to %s\n", landed)
		return false, nil
	}
	return true, nil
}

func (s *Shell) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: open <path>")
	}
	landed, err := s.router.Push(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "at %s\n", landed)
	return nil
}

func (s *Shell) whoami(_ context.Context, _ []string) error {
	u := s.auth.User()
	if u == nil {
		fmt.Fprintln(s.out, "anonymous")
		return nil
	}
	role := "reader"
	if u.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(s.out, "%s <%s> (%s)\n", u.Username, u.Email, role)
	return nil
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <username> <password>")
	}
	ok, err := s.auth.Login(ctx, model.LoginCredentials{Username: args[0], Password: args[1]})
	if ok {
		fmt.Fprintf(s.out, "logged in as %s\n", args[0])
	}
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.out, "login failed")
	}
	return nil
}

func (s *Shell) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: register <username> <email> <password>")
	}
	ok, err := s.auth.Register(ctx, model.RegisterRequest{
		Username:        args[0],
		Email:           args[1],
		Password:        args[2],
		ConfirmPassword: args[2],
	})
	if ok {
		fmt.Fprintf(s.out, "registered and logged in as %s\n", args[0])
	}
	return err
}

func (s *Shell) logout(ctx context.Context, _ []string) error {
	if err := s.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "logged out")
	return nil
}

func (s *Shell) listBooks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("books", flag.ContinueOnError)
	fs.SetOutput(s.out)
	onlyAvailable := fs.Bool("available", false, "only books with copies left")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ok, err := s.enter(ctx, router.BooksPath); !ok {
		return err
	}
	if err := s.books.FetchBooks(ctx); err != nil {
		return errors.New(s.books.Err())
	}
	list := books.FilterBooks(s.books.Books(), strings.Join(fs.Args(), " "), *onlyAvailable)
	if len(list) == 0 {
		fmt.Fprintln(s.out, "no books found")
		return nil
	}
	return s.printBooks(list)
}

func (s *Shell) printBooks(list []model.Book) error {
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tAVAILABLE")
	for _, b := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.AvailableCopies, b.TotalCopies)
	}
	return w.Flush()
}

func bookID(args []string, usage string) (int, error) {
	if len(args) < 1 {
		return 0, errors.New("usage: " + usage)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid book id %q", args[0])
	}
	return id, nil
}

func (s *Shell) book(ctx context.Context, args []string) error {
	id, err := bookID(args, s.commands["book"].usage)
	if err != nil {
		return err
	}
	if ok, err := s.enter(ctx, router.BooksPath); !ok {
		return err
	}
	b, err := s.books.GetBook(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s by %s\n", b.Title, b.Author)
	fmt.Fprintf(s.out, "ISBN %s", b.ISBN)
	if b.PublicationYear != 0 {
		fmt.Fprintf(s.out, ", %d", b.PublicationYear)
	}
	fmt.Fprintln(s.out)
	if b.Description != "" {
		fmt.Fprintln(s.out, b.Description)
	}
	fmt.Fprintf(s.out, "copies: %d of %d available\n", b.AvailableCopies, b.TotalCopies)
	for _, l := range b.CurrentLoans {
		fmt.Fprintf(s.out, "  on loan to %s until %s\n", l.UserName, l.DueDate.Format("2006-01-02"))
	}
	return nil
}

func (s *Shell) loan(ctx context.Context, args []string) error {
	id, err := bookID(args, s.commands["loan"].usage)
	if err != nil {
		return err
	}
	if ok, err := s.enter(ctx, router.BooksPath); !ok {
		return err
	}
	if _, err := s.books.LoanBook(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "loaned book %d\n", id)
	return nil
}

func (s *Shell) request(ctx context.Context, args []string) error {
	id, err := bookID(args, s.commands["request"].usage)
	if err != nil {
		return err
	}
	if ok, err := s.enter(ctx, router.BooksPath); !ok {
		return err
	}
	created, err := s.books.RequestBook(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		if msg, ok := errs.Message(err); ok {
			return errors.New(msg)
		}
		return err
	}
	fmt.Fprintf(s.out, "request %d for %q is %s\n", created.ID, created.Book.Title, created.Status)
	return nil
}

func (s *Shell) requests(ctx context.Context, _ []string) error {
	if ok, err := s.enter(ctx, router.BooksPath); !ok {
		return err
	}
	list, err := s.books.MyRequests(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out, "no requests")
		return nil
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBOOK\tSTATUS\tREQUESTED\tNOTES")
	for _, r := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Book.Title, r.Status, r.RequestDate.Format("2006-01-02"), r.Notes)
	}
	return w.Flush()
}

// overview refreshes the profile and the catalog side by side.
func (s *Shell) overview(ctx context.Context, _ []string) error {
	if ok, err := s.enter(ctx, router.BooksPath); !ok {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.auth.CheckAuth(gctx)
		return err
	})
	g.Go(func() error {
		return s.books.FetchBooks(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	u := s.auth.User()
	if u == nil {
		return errs.ErrUnauthenticated
	}
	catalog := s.books.Books()
	available := books.FilterBooks(catalog, "", true)
	fmt.Fprintf(s.out, "%s: %d active loans, %d returned, can borrow: %t\n",
		u.Username, len(u.Profile.ActiveLoans), len(u.Profile.LoanHistory), u.Profile.CanBorrow)
	for _, l := range u.Profile.ActiveLoans {
		fmt.Fprintf(s.out, "  %s due %s (%s, %d days left)\n",
			l.Book.Title, l.DueDate.Format("2006-01-02"), l.Status, l.DaysRemaining)
	}
	fmt.Fprintf(s.out, "catalog: %d books, %d available\n", len(catalog), len(available))
	return nil
}

func (s *Shell) help(_ context.Context, _ []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", s.commands[name].usage)
	}
	return nil
}
