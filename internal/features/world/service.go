package world

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/common"
)

// Store — хранилище записи о мире.
type Store interface {
	Get(ctx context.Context) (*Info, error)
	Replace(ctx context.Context, next Info) (*Info, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// SetWorld заменяет сведения о мире. Возвращает прежние (nil при первой установке).
func (s *Service) SetWorld(ctx context.Context, world, owner, bot, actor string) (*Info, error) {
	next := Info{
		World:     strings.TrimSpace(world),
		Owner:     strings.TrimSpace(owner),
		Bot:       strings.TrimSpace(bot),
		UpdatedBy: actor,
	}
	field := func(name, v string) error {
		return common.Check(name, v,
			validation.Required.Error("не указано"),
			validation.RuneLength(1, 255).Error("длиннее 255 символов"),
		)
	}
	if err := common.CheckAll(
		field("world", next.World),
		field("owner", next.Owner),
		field("bot", next.Bot),
	); err != nil {
		return nil, err
	}

	prev, err := s.store.Replace(ctx, next)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"world": next.World,
		"owner": next.Owner,
		"bot":   next.Bot,
		"actor": actor,
	}).Info("Мир обновлён")
	return prev, nil
}

// GetWorld возвращает текущие сведения или NotFoundError.
func (s *Service) GetWorld(ctx context.Context) (*Info, error) {
	return s.store.Get(ctx)
}
