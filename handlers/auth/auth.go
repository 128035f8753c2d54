package auth

import (
	"crypto/subtle"
	"errors"
	"excalidraw-drawings/config"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AccessKeySubject is the subject of callers authenticated by the access key.
const AccessKeySubject = "access-key"

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNoSecret          = errors.New("JWT secret not configured")
)

// AppClaims represents the claims of a drawings API token.
type AppClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Verifier accepts the static access key, a key matching the bcrypt hash, or
// an HS256 token signed with the JWT secret.
type Verifier struct {
	accessKey     []byte
	accessKeyHash []byte
	jwtSecret     []byte
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	v := &Verifier{}
	if cfg.AccessKey != "" {
		v.accessKey = []byte(cfg.AccessKey)
	}
	if cfg.AccessKeyHash != "" {
		v.accessKeyHash = []byte(cfg.AccessKeyHash)
	}
	if cfg.JWTSecret != "" {
		v.jwtSecret = []byte(cfg.JWTSecret)
	}
	if v.accessKey == nil && v.accessKeyHash == nil && v.jwtSecret == nil {
		logrus.Warn("No access key, access key hash or JWT secret configured; every request will be rejected")
	}
	return v
}

// Verify checks a bearer credential and returns the caller's claims.
func (v *Verifier) Verify(credential string) (*AppClaims, error) {
	if credential == "" {
		return nil, ErrInvalidCredential
	}
	if v.accessKey != nil && subtle.ConstantTimeCompare([]byte(credential), v.accessKey) == 1 {
		return accessKeyClaims(), nil
	}
	if v.accessKeyHash != nil && bcrypt.CompareHashAndPassword(v.accessKeyHash, []byte(credential)) == nil {
		return accessKeyClaims(), nil
	}
	if v.jwtSecret != nil {
		if claims, err := v.ParseJWT(credential); err == nil {
			return claims, nil
		}
	}
	return nil, ErrInvalidCredential
}

func accessKeyClaims() *AppClaims {
	return &AppClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: AccessKeySubject}}
}

// CreateJWT signs a token for subject valid for ttl.
func (v *Verifier) CreateJWT(subject, name string, ttl time.Duration) (string, error) {
	if v.jwtSecret == nil {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name: name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.jwtSecret)
}

func (v *Verifier) ParseJWT(tokenString string) (*AppClaims, error) {
	if v.jwtSecret == nil {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// HashAccessKey returns the bcrypt hash to configure as AUTH_ACCESS_KEY_HASH.
func HashAccessKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HandleValidate answers GET /auth/validate. Reaching it means the auth
// middleware accepted the credential.
func HandleValidate(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{"authenticated": true})
}

// HandleHealth answers GET /health.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
