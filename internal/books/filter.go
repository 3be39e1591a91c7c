package books

import (
	"strings"

	"github.com/Astemirdum/library-loan-client/internal/model"
)

// FilterBooks matches query case-insensitively against title, author, ISBN
// and description. The input slice is never modified.
func FilterBooks(items []model.Book, query string, onlyAvailable bool) []model.Book {
	result := make([]model.Book, 0, len(items))
	q := strings.ToLower(query)
	for _, b := range items {
		if q != "" && !matches(b, q) {
			continue
		}
		if onlyAvailable && b.AvailableCopies <= 0 {
			continue
		}
		result = append(result, b)
	}
	return result
}

func matches(b model.Book, q string) bool {
	return strings.Contains(strings.ToLower(b.Title), q) ||
		strings.Contains(strings.ToLower(b.Author), q) ||
		strings.Contains(strings.ToLower(b.ISBN), q) ||
		strings.Contains(strings.ToLower(b.Description), q)
}
