package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// TokenType distinguishes exam attempt tokens from proctor tokens.
type TokenType string

const (
	TokenTypeExam    TokenType = "exam"
	TokenTypeProctor TokenType = "proctor"
)

// Claims extends JWT standard claims with app-specific fields. An exam token
// binds one participant to one session serial for one exam; the session
// serial is what the proctor authorization check is keyed on.
type Claims struct {
	jwt.RegisteredClaims
	TokenType     TokenType `json:"token_type"`
	ExamSerial    string    `json:"exam_serial,omitempty"`
	ParticipantID int64     `json:"participant_id,omitempty"`
	SessionSerial string    `json:"session_serial,omitempty"`
	ProctorID     int64     `json:"proctor_id,omitempty"`
}

// AuthService handles password hashing and JWT issuance/validation.
type AuthService struct {
	cfg         *config.Config
	proctorRepo *repository.ProctorRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, proctorRepo *repository.ProctorRepository) *AuthService {
	return &AuthService{cfg: cfg, proctorRepo: proctorRepo}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateExamToken creates the per-attempt JWT a participant holds for the
// life of one exam attempt.
func (s *AuthService) GenerateExamToken(examSerial string, participantID int64, sessionSerial string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(participantID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExamTokenExpiry)),
		},
		TokenType:     TokenTypeExam,
		ExamSerial:    examSerial,
		ParticipantID: participantID,
		SessionSerial: sessionSerial,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// LoginProctor validates credentials and returns a proctor JWT.
func (s *AuthService) LoginProctor(ctx context.Context, username, password string) (string, error) {
	proctor, err := s.proctorRepo.GetByUsername(ctx, username)
	if err != nil {
		// Deliberately indistinguishable from a wrong password.
		return "", ErrInvalidCredentials
	}
	if err := s.CheckPassword(proctor.PasswordHash, password); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(proctor.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ProctorTokenExpiry)),
		},
		TokenType: TokenTypeProctor,
		ProctorID: proctor.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
