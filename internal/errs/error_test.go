package errs_test

import (
	"net/http"
	"testing"

	"github.com/Astemirdum/library-loan-client/internal/errs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()
	wrapped := errors.Wrap(&errs.HTTPError{StatusCode: http.StatusForbidden, Message: "nope"}, "fetch")

	require.Equal(t, http.StatusForbidden, errs.StatusCode(wrapped))
	require.True(t, errs.IsAuthStatus(wrapped))
	require.Equal(t, 0, errs.StatusCode(errors.New("dial tcp: refused")))
	require.False(t, errs.IsAuthStatus(errors.New("dial tcp: refused")))

	msg, ok := errs.Message(wrapped)
	require.True(t, ok)
	require.Equal(t, "nope", msg)
	require.Equal(t, "403 Forbidden: nope", (&errs.HTTPError{StatusCode: 403, Message: "nope"}).Error())
}
