// Package auth issues and verifies the bearer tokens of the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"poultrytrade/backend/internal/trip"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a login account of a tenant.
type User struct {
	ID           int64
	TenantID     int64
	Name         string
	Mobile       string
	Role         trip.Role
	PasswordHash string
}

// Users looks up accounts by their normalized mobile number.
type Users interface {
	FindUserByMobile(ctx context.Context, mobile string) (User, error)
}

type Claims struct {
	UserID   int64     `json:"uid"`
	TenantID int64     `json:"tid"`
	Role     trip.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the caller identity carried by the claims.
func (c *Claims) Actor() trip.Actor {
	return trip.Actor{UserID: c.UserID, TenantID: c.TenantID, Role: c.Role}
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Sign(u User) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:   u.ID,
		TenantID: u.TenantID,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID <= 0 || claims.TenantID <= 0 {
		return nil, errors.New("invalid token")
	}
	if _, ok := trip.ParseRole(string(claims.Role)); !ok {
		return nil, errors.New("invalid token role")
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks the password of the account registered under mobile.
func Authenticate(ctx context.Context, users Users, mobile, password string) (User, error) {
	u, err := users.FindUserByMobile(ctx, mobile)
	if errors.Is(err, trip.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
