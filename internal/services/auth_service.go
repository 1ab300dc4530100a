package services

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/majibrin/birinbolawa/internal/auth"
)

// AdminSession is an issued committee session
type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService checks the shared committee secret and issues sessions
type AuthService struct {
	passwordHash []byte
	attempts     *LoginAttemptTracker
	log          *zap.Logger
}

// NewAuthService creates an AuthService. passwordHash is a bcrypt hash; when
// empty, plaintext is hashed once here so it is never compared directly.
func NewAuthService(passwordHash, plaintext string, attempts *LoginAttemptTracker, log *zap.Logger) (*AuthService, error) {
	hash := []byte(passwordHash)
	if len(hash) == 0 {
		if plaintext == "" {
			return nil, fmt.Errorf("no committee password configured")
		}
		generated, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash committee password: %w", err)
		}
		hash = generated
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err)
	}

	return &AuthService{
		passwordHash: hash,
		attempts:     attempts,
		log:          log,
	}, nil
}

// Login exchanges the committee password for a session token
func (s *AuthService) Login(clientIP, password string) (*AdminSession, error) {
	if s.attempts != nil && !s.attempts.Attempt(clientIP) {
		s.log.Warn("Rejected login from blocked client", zap.String("client_ip", clientIP))
		return nil, ErrTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.log.Info("Failed committee login", zap.String("client_ip", clientIP))
		return nil, ErrInvalidCredentials
	}

	if s.attempts != nil {
		s.attempts.Reset(clientIP)
	}

	token, expiresAt, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	s.log.Info("Committee session issued", zap.String("client_ip", clientIP))
	return &AdminSession{Token: token, ExpiresAt: expiresAt}, nil
}

// HashPassword produces a value suitable for ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type loginAttempts struct {
	count int
	first time.Time
}

// LoginAttemptTracker counts login attempts per client IP within a window
type LoginAttemptTracker struct {
	mu       sync.Mutex
	attempts map[string]*loginAttempts
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewLoginAttemptTracker blocks an IP once it has made limit unsuccessful
// attempts within window, until window has passed since its first attempt.
func NewLoginAttemptTracker(limit int, window time.Duration) *LoginAttemptTracker {
	return &LoginAttemptTracker{
		attempts: make(map[string]*loginAttempts),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Attempt reserves one login attempt for ip. It returns false once ip has
// used limit attempts within the window; a successful login must call Reset.
func (t *LoginAttemptTracker) Attempt(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)

	info, exists := t.attempts[ip]
	if !exists {
		info = &loginAttempts{first: now}
		t.attempts[ip] = info
	}
	if info.count >= t.limit {
		return false
	}
	info.count++
	return true
}

// Reset forgets ip after a successful login
func (t *LoginAttemptTracker) Reset(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.attempts, ip)
}

// prune must be called with mu held
func (t *LoginAttemptTracker) prune(now time.Time) {
	for ip, info := range t.attempts {
		if now.Sub(info.first) > t.window {
			delete(t.attempts, ip)
		}
	}
}
