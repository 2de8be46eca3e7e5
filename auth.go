package main

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "jwt"

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var ErrUnauthenticated = errors.New("unauthenticated")

// Credential is the single configured admin identity. The bcrypt hash is
// unexported and never serialized or logged.
type Credential struct {
	ID       string
	Username string
	hash     []byte
}

func NewCredential(id, username, passwordHash string) Credential {
	return Credential{ID: id, Username: username, hash: []byte(passwordHash)}
}

// Verify checks the supplied pair against the configured credential. Callers
// get a single yes/no answer; a wrong username and a wrong password are
// indistinguishable.
func (c Credential) Verify(username, password string) bool {
	if username != c.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}

// Auth mints and validates the signed session tokens gating every protected
// route. Tokens are self-contained HS256 JWTs; there is no server-side
// session table, so a token stays valid until its expiry even after logout.
type Auth struct {
	credential Credential
	secret     []byte
	ttl        time.Duration
}

func NewAuth(credential Credential, secret string, ttl time.Duration) *Auth {
	return &Auth{
		credential: credential,
		secret:     []byte(secret),
		ttl:        ttl,
	}
}

// Issue produces a signed token embedding the subject id and an expiry.
func (a *Auth) Issue(subjectID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":  subjectID,
		"iat": now.Unix(),
		"exp": now.Add(a.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify checks signature and expiry and returns the embedded subject id.
// Tampered, expired and malformed tokens are all rejected uniformly.
func (a *Auth) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthenticated
	}

	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return "", ErrUnauthenticated
	}

	return id, nil
}

// Middleware gates a route group on a valid session token taken from the
// Authorization header or, failing that, the session cookie.
func (a *Auth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not logged in! Please log in to get access."})
			c.Abort()
			return
		}

		subjectID, err := a.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token. Please log in again!"})
			c.Abort()
			return
		}

		c.Set("userID", subjectID)
		c.Next()
	}
}

// tokenFromRequest extracts the bearer token, header taking precedence over
// the cookie when both are present.
func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func validateLogin(req *loginRequest) []string {
	var details []string
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 20 {
		details = append(details, "Username must be between 3 and 20 characters")
	} else if !usernameRegex.MatchString(req.Username) {
		details = append(details, "Username can only contain letters, numbers, and underscores")
	}
	if len(req.Password) < 6 {
		details = append(details, "Password must be at least 6 characters long")
	}
	return details
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if details := validateLogin(&req); len(details) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
		return
	}

	if !a.auth.credential.Verify(req.Username, req.Password) {
		RecordEvent("login_failed", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := a.auth.Issue(a.auth.credential.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	RecordEvent("login", req.Username)
	a.setSessionCookie(c, token, int(a.auth.ttl.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"token":  token,
		"data": gin.H{
			"user": gin.H{
				"id":       a.auth.credential.ID,
				"username": a.auth.credential.Username,
			},
		},
	})
}

// logout cannot invalidate a bearer token the client already holds; it only
// overwrites the cookie with a short-lived placeholder.
func (a *API) logout(c *gin.Context) {
	a.setSessionCookie(c, "loggedout", 10)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *API) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"user": gin.H{
				"id":       a.auth.credential.ID,
				"username": a.auth.credential.Username,
			},
		},
	})
}

func (a *API) setSessionCookie(c *gin.Context, value string, maxAge int) {
	secure := gin.Mode() == gin.ReleaseMode
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookie, value, maxAge, "/", "", secure, true)
}
