// Package members — service.go содержит бизнес-логику справочника:
// регистрацию отправителей и поиск получателя команды send.
package members

import (
	"context"
	"errors"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/common"
)

// Store — хранилище справочника. Реализуется *Repository.
type Store interface {
	Upsert(ctx context.Context, p Profile) error
	GetByUserID(ctx context.Context, userID int64) (*Member, error)
	GetByUsername(ctx context.Context, username string) (*Member, error)
}

// Service управляет справочником пользователей.
type Service struct {
	store Store
}

// NewService создаёт новый сервис справочника.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Touch регистрирует отправителя или обновляет его данные.
// Вызывается на каждое входящее сообщение.
func (s *Service) Touch(ctx context.Context, p Profile) error {
	if p.UserID == 0 {
		return common.Invalid("user_id", "пустой Telegram ID")
	}
	p.Username = strings.TrimPrefix(strings.TrimSpace(p.Username), "@")
	if err := s.store.Upsert(ctx, p); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id":  p.UserID,
		"username": p.Username,
	}).Debug("Пользователь зарегистрирован")
	return nil
}

// Resolve находит получателя по ссылке из команды:
// "@username", "username" или числовой Telegram ID.
// Числовой ID принимается, даже если бот его ещё не видел.
func (s *Service) Resolve(ctx context.Context, ref string) (*Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.Invalid("recipient", "получатель не указан")
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		m, err := s.store.GetByUserID(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return &Member{UserID: id}, nil
	}

	return s.store.GetByUsername(ctx, strings.TrimPrefix(ref, "@"))
}

// GetByUserID возвращает пользователя по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.store.GetByUserID(ctx, userID)
}
