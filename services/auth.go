package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"yatube.dev/yatube/models"
	"yatube.dev/yatube/repository"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const minPasswordLength = 8

type Auth struct {
	store  repository.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuth(store repository.Store, secret string, ttl time.Duration) *Auth {
	return &Auth{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

type SignupInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
}

func (a *Auth) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	switch {
	case in.Username == "":
		return nil, invalid("username", "This field is required.")
	case len(in.Username) > 150:
		return nil, invalid("username", "Ensure this value has at most 150 characters.")
	case !usernamePattern.MatchString(in.Username):
		return nil, invalid("username", "Letters, digits and @/./+/-/_ only.")
	case len(in.Password) < minPasswordLength:
		return nil, invalid("password", fmt.Sprintf("Password must contain at least %d characters.", minPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Username:    in.Username,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Email:       strings.TrimSpace(in.Email),
		Password:    string(hashed),
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, u.Username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.Password = ""
	return u, nil
}

func (a *Auth) Login(ctx context.Context, username, password string) (*models.User, error) {
	u, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	u.Password = ""
	return u, nil
}

// IssueToken signs a session token for u.
func (a *Auth) IssueToken(u *models.User) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(u.ID),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate resolves a session token to its user.
func (a *Auth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidCredentials
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := a.store.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return u, nil
}
