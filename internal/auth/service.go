package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"chat-broker/internal/config"
	"chat-broker/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const operatorRole = "operator"

// Service issues and checks operator tokens for the introspection API.
type Service struct {
	secret       []byte
	username     string
	passwordHash []byte
	expiresIn    time.Duration
	now          func() time.Time
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		secret:       []byte(cfg.JWT.Secret),
		username:     cfg.Admin.Username,
		passwordHash: []byte(cfg.Admin.PasswordHash),
		expiresIn:    cfg.JWT.ExpiresIn,
		now:          time.Now,
	}
}

func (s *Service) Login(req *models.LoginRequest) (*models.LoginResponse, error) {
	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.expiresIn)
	token, err := s.generateToken(req.Username, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken returns the operator name carried by a valid token.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if role, _ := claims["role"].(string); role != operatorRole {
		return "", ErrInvalidToken
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func (s *Service) generateToken(username string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  username,
		"role": operatorRole,
		"exp":  expiresAt.Unix(),
		"iat":  s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
