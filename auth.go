package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/asdine/storm"
	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

const TOKEN_LIFESPAN = time.Hour

type ctxKey int

const claimsKey ctxKey = iota

//---
// Structs
//

// Operator is a local account allowed onto the monitor. Admin operators may
// issue motor commands; everyone else is read-only.
type Operator struct {
	ID       int    `storm:"increment"` // pk
	Email    string `storm:"unique"`
	Name     string
	Password string
	Admin    bool
}

// Sets Operator.Password to the hashed value for the provided plain text
func (o *Operator) SetPassword(pass []byte) {
	hash, _ := bcrypt.GenerateFromPassword(pass, bcrypt.DefaultCost)
	o.Password = string(hash)
}

// Compares Operator.Password with the provided plain text.
// Returns values directly as provided by the bcrypt library for downstream processing.
func (o *Operator) VerifyPassword(pass []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(o.Password), pass)
}

// operatorClaims carries the operator's role alongside the registered claims
// so command endpoints can gate without a DB lookup per request.
type operatorClaims struct {
	Admin bool `json:"adm"`
	jwt.StandardClaims
}

//---
// Generic payloads
//---

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *LoginPayload) Bind(r *http.Request) error {
	return nil
}

type TokenPayload struct {
	SignedToken string `json:"token"`
}

//---
// Helper functions
//

// newToken issues a signed token binding the operator's email and role.
func newToken(sub string, admin bool) (ts string, err error) {
	now := time.Now().UTC()
	claims := operatorClaims{
		Admin: admin,
		StandardClaims: jwt.StandardClaims{
			Issuer:    ENV.JWT_ISSUER,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TOKEN_LIFESPAN).Unix(),
			Subject:   sub,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(ENV.JWT_SECRET))
}

// requestToken pulls the raw token string from query params, the
// Authorization header or a cookie, in that order.
func requestToken(r *http.Request) string {
	if ts := r.URL.Query().Get("jwt"); ts != "" {
		return ts
	}

	bearer := r.Header.Get("Authorization")
	if len(bearer) > 7 && strings.ToUpper(bearer[0:6]) == "BEARER" {
		return bearer[7:]
	}

	if cookie, err := r.Cookie("jwt"); err == nil {
		return cookie.Value
	}

	return ""
}

// requestClaims returns the validated claims placed on the context by
// ValidateJWT.
func requestClaims(r *http.Request) *operatorClaims {
	return r.Context().Value(claimsKey).(*operatorClaims)
}

//---
// Views
//---

// Login looks up an operator, verifies the password and returns a token
func Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	var op Operator
	if err := ENV.DB.One("Email", data.Email, &op); err != nil {
		if err == storm.ErrNotFound {
			render.Render(w, r, ErrNotFound)
			return
		}
		panic(err)
	}

	if err := op.VerifyPassword([]byte(data.Password)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			render.Render(w, r, ErrPermissionDenied(errors.New("Invalid password")))
			return
		}
		render.Render(w, r, ErrRender(err))
		return
	}

	tokenString, err := newToken(op.Email, op.Admin)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, TokenPayload{tokenString})
}

// TokenRefresh re-issues the caller's token with a fresh expiry, keeping the
// role that was granted at login.
func TokenRefresh(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)

	tokenString, err := newToken(claims.Subject, claims.Admin)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, TokenPayload{tokenString})
}

//---
// Authentication middleware
//---

var (
	ErrTokenMissing = errors.New("Bearer token not provided")
)

func ValidateJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := requestToken(r)
		if tokenStr == "" {
			render.Render(w, r, ErrUnauthorized(ErrTokenMissing))
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr,
			&operatorClaims{},
			func(*jwt.Token) (interface{}, error) { return []byte(ENV.JWT_SECRET), nil })

		if err != nil {
			msg := errors.New("Invalid token")
			if verr, ok := err.(*jwt.ValidationError); ok && verr.Errors == jwt.ValidationErrorExpired {
				msg = errors.New("Token has expired")
			}
			render.Render(w, r, ErrUnauthorized(msg))
			return
		}

		if !token.Valid {
			render.Render(w, r, ErrUnauthorized(errors.New("Invalid token")))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, token.Claims.(*operatorClaims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin refuses operators whose token does not carry the admin role.
// Must sit inside ValidateJWT.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestClaims(r).Admin {
			render.Render(w, r, ErrPermissionDenied(errors.New("admin role required")))
			return
		}

		next.ServeHTTP(w, r)
	})
}
