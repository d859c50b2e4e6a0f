// Package admin — service.go решает, есть ли у пользователя права
// администратора, и управляет входом по паролю.
package admin

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/common"
)

// ErrSessionRequired — администратор из списка, но не вошёл по паролю.
var ErrSessionRequired = errors.New("сначала войдите: /login <пароль> в личке с ботом")

// ErrLoginNotRequired — пароль не настроен, входить не нужно.
var ErrLoginNotRequired = errors.New("вход по паролю не настроен")

// Store — хранилище сессий. Реализуется *Repository.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetActiveSession(ctx context.Context, userID int64, now time.Time) (*Session, error)
	DeactivateSessions(ctx context.Context, userID int64) (int64, error)
	LogAttempt(ctx context.Context, userID int64, success bool) error
	CountFailures(ctx context.Context, userID int64, since time.Time) (int, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Options — настройки прав из конфигурации.
type Options struct {
	AdminIDs     []int64
	PasswordHash string // пусто — достаточно быть в AdminIDs
	SessionTTL   time.Duration
}

// Service проверяет права и ведёт сессии.
type Service struct {
	store        Store
	admins       map[int64]struct{}
	passwordHash string
	sessionTTL   time.Duration
	now          func() time.Time
}

// NewService создаёт сервис прав.
func NewService(store Store, opts Options) *Service {
	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		store:        store,
		admins:       admins,
		passwordHash: opts.PasswordHash,
		sessionTTL:   ttl,
		now:          time.Now,
	}
}

// IsAdmin — пользователь есть в ADMIN_IDS.
func (s *Service) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

// PasswordRequired — нужен ли вход по паролю.
func (s *Service) PasswordRequired() bool {
	return s.passwordHash != ""
}

// Authorize возвращает nil, если пользователь может выполнять
// привилегированные команды, иначе common.ErrNotAdmin или ErrSessionRequired.
func (s *Service) Authorize(ctx context.Context, userID int64) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	if !s.PasswordRequired() {
		return nil
	}
	_, err := s.store.GetActiveSession(ctx, userID, s.now())
	if errors.Is(err, common.ErrNotFound) {
		return ErrSessionRequired
	}
	return err
}

// Login проверяет пароль и открывает сессию на sessionTTL.
// После MaxFailedAttempts ошибок за час вход блокируется.
func (s *Service) Login(ctx context.Context, userID int64, password string) (*Session, error) {
	if !s.IsAdmin(userID) {
		return nil, common.ErrNotAdmin
	}
	if !s.PasswordRequired() {
		return nil, ErrLoginNotRequired
	}

	now := s.now()
	failures, err := s.store.CountFailures(ctx, userID, now.Add(-AttemptWindow))
	if err != nil {
		return nil, err
	}
	if failures >= MaxFailedAttempts {
		log.WithField("user_id", userID).Warn("Вход заблокирован: слишком много попыток")
		return nil, common.ErrTooManyAttempts
	}

	match := VerifyPassword(password, s.passwordHash)
	if err := s.store.LogAttempt(ctx, userID, match); err != nil {
		return nil, err
	}
	if !match {
		log.WithField("user_id", userID).Warn("Неверный пароль администратора")
		return nil, common.ErrWrongPassword
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		UserID:          userID,
		SessionToken:    token,
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(s.sessionTTL),
		IsActive:        true,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"expires_at": session.ExpiresAt,
	}).Info("Администратор вошёл")
	return session, nil
}

// Logout закрывает все сессии пользователя.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	n, err := s.store.DeactivateSessions(ctx, userID)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "sessions": n}).Info("Администратор вышел")
	return nil
}

// PurgeExpired чистит старые сессии. Вызывается планировщиком.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeExpired(ctx, s.now())
}
