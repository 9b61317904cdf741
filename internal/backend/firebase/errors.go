package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"todo/internal/service"
)

// authCodes maps Identity Toolkit error codes to service errors.
// The provider reports them as the error message, sometimes followed by " : detail".
var authCodes = map[string]error{
	"EMAIL_EXISTS":              service.ErrEmailTaken,
	"EMAIL_NOT_FOUND":           service.ErrInvalidCredentials,
	"INVALID_PASSWORD":          service.ErrInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS": service.ErrInvalidCredentials,
	"INVALID_EMAIL":             service.ErrInvalidCredentials,
	"MISSING_PASSWORD":          service.ErrInvalidCredentials,
	"WEAK_PASSWORD":             service.ErrWeakPassword,
	"USER_DISABLED":             service.ErrPermissionDenied,
	"TOKEN_EXPIRED":             service.ErrUnauthenticated,
	"INVALID_REFRESH_TOKEN":     service.ErrUnauthenticated,
	"INVALID_ID_TOKEN":          service.ErrUnauthenticated,
	"USER_NOT_FOUND":            service.ErrUnauthenticated,
}

// friendly messages for codes that have no sentinel of their own.
var authMessages = map[string]string{
	"TOO_MANY_ATTEMPTS_TRY_LATER": "too many attempts, try again later",
	"OPERATION_NOT_ALLOWED":       "email/password sign-in is disabled for this project",
	"API_KEY_INVALID":             "invalid api key",
}

// wrapError converts transport and API errors into service errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	if errors.Is(err, service.ErrUnauthenticated) {
		return err
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response != nil && rerr.Response.StatusCode < http.StatusInternalServerError {
			return fmt.Errorf("%w: session expired (run: todo login)", service.ErrUnauthenticated)
		}
		return fmt.Errorf("refresh session: %w", err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	code := gerr.Message
	if i := strings.IndexAny(code, " :"); i != -1 {
		code = code[:i]
	}
	if sentinel, ok := authCodes[code]; ok {
		return sentinel
	}
	if msg, ok := authMessages[code]; ok {
		return errors.New(msg)
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w (run: todo login)", service.ErrUnauthenticated)
	case http.StatusForbidden:
		return service.ErrPermissionDenied
	case http.StatusNotFound:
		return service.ErrNotFound
	}
	return err
}
