// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// реестр команд и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/bot"
	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/bot/filters"
	"github.com/fdygg/DC-store/internal/bot/middleware"
	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/config"
	"github.com/fdygg/DC-store/internal/db/postgres"
	"github.com/fdygg/DC-store/internal/features/admin"
	"github.com/fdygg/DC-store/internal/features/inventory"
	"github.com/fdygg/DC-store/internal/features/ledger"
	"github.com/fdygg/DC-store/internal/features/members"
	"github.com/fdygg/DC-store/internal/features/storefront"
	"github.com/fdygg/DC-store/internal/features/world"
	"github.com/fdygg/DC-store/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
	Dedupe    *middleware.DedupeGuard
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	memberRepo := members.NewRepository(pool)
	inventoryRepo := inventory.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	worldRepo := world.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	memberService := members.NewService(memberRepo)
	inventoryService := inventory.NewService(inventoryRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	worldService := world.NewService(worldRepo)
	adminService := admin.NewService(adminRepo, admin.Options{
		AdminIDs:     cfg.AdminIDs,
		PasswordHash: cfg.AdminPasswordHash,
		SessionTTL:   cfg.AdminSessionTTL,
	})
	storeService := storefront.NewService(
		inventoryService, ledgerService, worldService,
		bot.NewDeliverer(botAPI), cfg.DeliveryChunkSize,
	)

	// === 5. Обработчики и реестр команд ===
	memberHandler := members.NewHandler(memberService)
	adminHandler := admin.NewHandler(adminService)
	storeHandler := storefront.NewHandler(storeService, memberService, bot.NewFiles(botAPI), cfg.AppTimezone)

	registry := command.NewRegistry()
	registry.MustRegister(adminHandler.Commands()...)
	registry.MustRegister(storeHandler.Commands()...)

	dedupe, err := middleware.NewDedupeGuard(cfg.DedupeCapacity, cfg.DedupeWindow)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("dedupe guard: %w", err)
	}
	dispatcher := bot.NewDispatcher(registry, adminService, dedupe, cfg.DedupeWindow)

	// === 6. Собираем бота ===
	b := bot.New(botAPI, cfg, memberHandler, dispatcher, filters.NewChatFilter(cfg.AllowedChatIDs))

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(
		inventoryService, adminService,
		cfg.StockReconcileSchedule, common.LoadLocation(cfg.AppTimezone),
	)

	log.WithFields(log.Fields{
		"admins":            len(cfg.AdminIDs),
		"password_required": cfg.PasswordRequired(),
		"commands":          len(registry.All()),
	}).Info("Приложение собрано")

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
		Dedupe:    dedupe,
	}, nil
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	a.Dedupe.Close()
	a.DB.Close()
}
