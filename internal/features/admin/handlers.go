// Package admin — handlers.go содержит команды login и logout.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/common"
)

// Handler обрабатывает команды входа.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик команд входа.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Commands возвращает команды для реестра.
func (h *Handler) Commands() []command.Spec {
	return []command.Spec{
		{
			Name:        "login",
			Usage:       "/login <пароль>",
			PrivateOnly: true,
			Sensitive:   true,
			Handler:     h.Login,
		},
		{
			Name:    "logout",
			Usage:   "/logout",
			Handler: h.Logout,
		},
	}
}

// Login — /login <пароль>.
func (h *Handler) Login(ctx context.Context, req *command.Request) (string, error) {
	if len(req.Args) != 1 {
		return "", command.ErrUsage
	}
	session, err := h.service.Login(ctx, req.UserID, req.Args[0])
	if errors.Is(err, ErrLoginNotRequired) {
		return "ℹ️ Пароль не настроен, команды доступны без входа", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Аутентификация успешна! Сессия до %s UTC",
		common.FormatDateTime(session.ExpiresAt, nil)), nil
}

// Logout — /logout.
func (h *Handler) Logout(ctx context.Context, req *command.Request) (string, error) {
	if err := h.service.Logout(ctx, req.UserID); err != nil {
		return "", err
	}
	return "👋 Сессия закрыта", nil
}
