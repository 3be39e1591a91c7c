package devserver

import (
	"os"

	"github.com/Astemirdum/library-loan-client/internal/model"
	"github.com/pkg/errors"
)

var defaultCatalog = []model.Book{
	{Title: "The Go Programming Language", Author: "Alan A. A. Donovan", ISBN: "9780134190440", Description: "Go from first principles.", PublicationYear: 2015, TotalCopies: 3},
	{Title: "Designing Data-Intensive Applications", Author: "Martin Kleppmann", ISBN: "9781449373320", Description: "Reliable, scalable and maintainable systems.", PublicationYear: 2017, TotalCopies: 2},
	{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", PublicationYear: 1965, TotalCopies: 1},
	{Title: "Refactoring", Author: "Martin Fowler", ISBN: "9780134757599", Description: "Improving the design of existing code.", PublicationYear: 2018, TotalCopies: 1},
	{Title: "The Pragmatic Programmer", Author: "David Thomas", ISBN: "9780135957059", PublicationYear: 2019, TotalCopies: 2},
}

// Seed fills the store with a catalog and two accounts sharing one password:
// "reader" and the staff account "librarian". An empty catalogFile uses the
// built-in catalog.
func Seed(s *Store, password, catalogFile string) error {
	books := defaultCatalog
	if catalogFile != "" {
		f, err := os.Open(catalogFile)
		if err != nil {
			return errors.Wrap(err, "open catalog")
		}
		defer f.Close()
		if books, err = LoadCatalog(f); err != nil {
			return err
		}
	}
	for _, b := range books {
		s.AddBook(b)
	}
	if _, err := s.CreateUser("reader", "reader@library.local", password, false); err != nil {
		return err
	}
	if _, err := s.CreateUser("librarian", "librarian@library.local", password, true); err != nil {
		return err
	}
	return nil
}
