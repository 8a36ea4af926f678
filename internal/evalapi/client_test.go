package evalapi_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/evalapi"
	"github.com/sakif/social-analytics/internal/evalapi/evalapitest"
	"github.com/sakif/social-analytics/internal/model"
)

var testCreds = model.Credentials{
	Email:          "student@example.edu",
	Name:           "Test Student",
	MobileNo:       "9999999999",
	GithubUsername: "tstudent",
	RollNo:         "22050001",
	CollegeName:    "Example Institute",
	AccessCode:     "abc123",
}

func newTestClient(srv *httptest.Server) *evalapi.Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return evalapi.New(srv.URL, srv.Client(), logger)
}

// =========================================================================
// REGISTER / AUTHENTICATE
// =========================================================================

func TestRegisterAndAuthenticate(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{})
	c := newTestClient(srv.Server)
	ctx := context.Background()

	reg, err := c.Register(ctx, testCreds)
	require.NoError(t, err)
	assert.Equal(t, "client-22050001", reg.ClientID)
	assert.NotEmpty(t, reg.ClientSecret)

	tok, err := c.Authenticate(ctx, model.NewAuthRequest(testCreds, reg))
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestRegister_ServerError(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{FailRegister: true})
	c := newTestClient(srv.Server)

	_, err := c.Register(context.Background(), testCreds)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNetwork)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRegister_MissingClientPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Register(context.Background(), testCreds)
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

func TestAuthenticate_Rejected(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{RejectAuth: true})
	c := newTestClient(srv.Server)

	_, err := c.Authenticate(context.Background(), model.AuthRequest{ClientID: "x", ClientSecret: "y"})
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{EmptyToken: true})
	c := newTestClient(srv.Server)

	_, err := c.Authenticate(context.Background(), model.AuthRequest{ClientID: "x", ClientSecret: "y"})
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

// =========================================================================
// USERS / POSTS
// =========================================================================

func TestUsers(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{
		Users: map[string]string{"1": "Alice", "2": "Bob"},
	})
	c := newTestClient(srv.Server)
	tok := srv.IssueToken(t)

	users, err := c.Users(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "Alice", "2": "Bob"}, users)
}

func TestUsers_MissingFieldIsEmpty(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{OmitUsersField: true})
	c := newTestClient(srv.Server)

	users, err := c.Users(context.Background(), srv.IssueToken(t))
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUsers_BadTokenIsAuthFailure(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{Users: map[string]string{"1": "Alice"}})
	c := newTestClient(srv.Server)
	srv.IssueToken(t)

	_, err := c.Users(context.Background(), "not-the-token")
	assert.ErrorIs(t, err, apperror.ErrAuth)
}

func TestPosts(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{
		Users:      map[string]string{"7": "Grace"},
		PostCounts: map[string]int{"7": 4},
	})
	c := newTestClient(srv.Server)

	posts, err := c.Posts(context.Background(), srv.IssueToken(t), "7")
	require.NoError(t, err)
	assert.Len(t, posts, 4)
}

func TestPosts_ServerError(t *testing.T) {
	srv := evalapitest.NewServer(t, evalapitest.Fixture{FailPosts: map[string]bool{"7": true}})
	c := newTestClient(srv.Server)

	_, err := c.Posts(context.Background(), srv.IssueToken(t), "7")
	assert.ErrorIs(t, err, apperror.ErrNetwork)
}

func TestBearerHeaderIsSent(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		w.Write([]byte(`{"users":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Users(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-abc", <-gotAuth)
}

func TestTimeoutIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := evalapi.New(srv.URL, &http.Client{Timeout: 20 * time.Millisecond}, logger)

	_, err := c.Users(context.Background(), "tok")
	assert.ErrorIs(t, err, apperror.ErrNetwork)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	_, err := evalapi.New(url, nil, logger).Register(context.Background(), testCreds)
	assert.ErrorIs(t, err, apperror.ErrNetwork)
}
