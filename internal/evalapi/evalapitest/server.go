// Package evalapitest runs a fake evaluation service for tests.
//
// It speaks the same four endpoints as the real service, issues signed JWT
// access tokens, enforces the bearer header on GET routes, and records
// every call so tests can assert that a cached run made no network calls.
package evalapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/social-analytics/internal/model"
)

// Issuer is the "iss" claim of tokens issued by the fake server.
const Issuer = "evaluation-service"

// Fixture describes what the fake server returns. It is copied at
// construction and never changes afterwards.
type Fixture struct {
	// Users is the directory served by GET /users.
	Users map[string]string
	// PostCounts is the number of posts returned per user ID.
	PostCounts map[string]int
	// FailPosts lists user IDs whose posts endpoint answers 500.
	FailPosts map[string]bool
	// OmitUsersField makes GET /users answer {} instead of {"users": ...}.
	OmitUsersField bool

	FailRegister bool // /register answers 500
	RejectAuth   bool // /auth answers 401
	EmptyToken   bool // /auth answers 200 with an empty access_token

	// PostsDelay is slept before answering each posts request.
	PostsDelay time.Duration
}

// Server is a running fake. Close is registered with t.Cleanup.
type Server struct {
	*httptest.Server

	fixture Fixture
	secret  []byte

	mu       sync.Mutex
	calls    map[string]int
	token    string
	inFlight int
	peak     int
}

func NewServer(t testing.TB, f Fixture) *Server {
	t.Helper()

	s := &Server{
		fixture: f,
		secret:  []byte("evalapitest-signing-secret"),
		calls:   make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/register", s.handleRegister)
	r.Post("/auth", s.handleAuth)
	r.Get("/users", s.handleUsers)
	r.Get("/users/{id}/posts", s.handlePosts)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Calls returns how many requests hit the given route pattern
// (e.g. "/register", "/users/{id}/posts").
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests the server has received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// PeakConcurrentPosts is the largest number of posts requests that were
// being served at the same time.
func (s *Server) PeakConcurrentPosts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// IssueToken mints a token the server will accept, without going through
// /register and /auth. Useful for seeding a store with a cached token.
func (s *Server) IssueToken(t testing.TB) string {
	t.Helper()
	tok, err := s.sign("seeded-client")
	if err != nil {
		t.Fatalf("evalapitest: signing token: %v", err)
	}
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return tok
}

func (s *Server) record(route string) {
	s.mu.Lock()
	s.calls[route]++
	s.mu.Unlock()
}

func (s *Server) sign(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.record("/register")
	if s.fixture.FailRegister {
		http.Error(w, `{"message":"registration closed"}`, http.StatusInternalServerError)
		return
	}

	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.AccessCode == "" {
		http.Error(w, `{"message":"invalid registration"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, model.ClientRegistration{
		ClientID:     "client-" + creds.RollNo,
		ClientSecret: "secret-" + creds.AccessCode,
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	s.record("/auth")
	if s.fixture.RejectAuth {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	var req model.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" || req.ClientSecret == "" {
		http.Error(w, `{"message":"invalid auth request"}`, http.StatusBadRequest)
		return
	}

	if s.fixture.EmptyToken {
		writeJSON(w, map[string]string{"access_token": ""})
		return
	}

	tok, err := s.sign(req.ClientID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"token_type":   "Bearer",
		"access_token": tok,
		"expires_in":   3600,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return s.token != "" && got == s.token
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.record("/users")
	if !s.authorized(r) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if s.fixture.OmitUsersField {
		writeJSON(w, map[string]any{})
		return
	}
	users := s.fixture.Users
	if users == nil {
		users = map[string]string{}
	}
	writeJSON(w, map[string]any{"users": users})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	s.record("/users/{id}/posts")
	if !s.authorized(r) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.fixture.PostsDelay > 0 {
		time.Sleep(s.fixture.PostsDelay)
	}

	id := chi.URLParam(r, "id")
	if s.fixture.FailPosts[id] {
		http.Error(w, `{"message":"posts unavailable"}`, http.StatusInternalServerError)
		return
	}

	n := s.fixture.PostCounts[id]
	posts := make([]map[string]any, n)
	for i := range posts {
		posts[i] = map[string]any{"id": i + 1, "userid": id, "content": "post"}
	}
	writeJSON(w, map[string]any{"posts": posts})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
