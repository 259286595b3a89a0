package fakeapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

type tokenClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func newSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("fakeapi: read random secret: " + err.Error())
	}
	return b
}

// SeedUser registers an account directly. bcrypt.MinCost keeps tests fast.
func (s *Server) SeedUser(username, password string) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.accounts[username]; taken {
		return 0, fmt.Errorf("username %q already registered", username)
	}
	id := s.nextUser
	s.nextUser++
	s.accounts[username] = &account{id: id, username: username, hash: hash}
	return id, nil
}

// IssueToken signs a token for an existing user, valid for ttl.
func (s *Server) IssueToken(username string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return "", fmt.Errorf("unknown user %q", username)
	}
	return s.sign(acc, ttl)
}

func (s *Server) sign(acc *account, ttl time.Duration) (string, error) {
	claims := tokenClaims{
		UserID:   acc.id,
		Username: acc.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	s.mu.Lock()
	token, err := s.sign(acc, s.tokenTTL)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("fakeapi: sign token", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      acc.id,
		Username:    acc.username,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if len(req.Username) < 3 {
		writeDetail(w, http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		writeDetail(w, http.StatusBadRequest, "Password must be between 8 and 72 characters")
		return
	}

	id, err := s.SeedUser(req.Username, req.Password)
	if err != nil {
		writeDetail(w, http.StatusConflict, "Username already registered")
		return
	}
	writeJSON(w, http.StatusCreated, domain.RegisterResponse{ID: id, Username: req.Username})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		secret := s.secret
		s.mu.Unlock()

		claims := &tokenClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeDetail(w, http.StatusUnauthorized, "Token expired")
				return
			}
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) int {
	id, _ := r.Context().Value(ctxKey{}).(int)
	return id
}
