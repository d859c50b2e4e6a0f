// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: сверку stock_count со складом
// и чистку истёкших сессий администраторов.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/features/inventory"
)

// SessionPurgeSchedule — раз в час.
const SessionPurgeSchedule = "0 * * * *"

// Reconciler сверяет кеш остатков со складом.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]inventory.Drift, error)
}

// SessionPurger удаляет истёкшие сессии.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	sessions   SessionPurger
	schedule   string
	loc        *time.Location
}

// NewScheduler создаёт планировщик. schedule — расписание сверки склада
// в формате cron, loc — часовой пояс расписаний.
func NewScheduler(reconciler Reconciler, sessions SessionPurger, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reconciler: reconciler,
		sessions:   sessions,
		schedule:   schedule,
		loc:        loc,
	}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.reconcileStock(ctx) }); err != nil {
		return fmt.Errorf("расписание сверки склада %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(SessionPurgeSchedule, func() { s.purgeSessions(ctx) }); err != nil {
		return fmt.Errorf("расписание чистки сессий: %w", err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"reconcile": s.schedule,
		"timezone":  s.loc.String(),
	}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) reconcileStock(ctx context.Context) {
	log.Debug("[CRON] Сверка stock_count")
	drifts, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сверки склада")
		return
	}
	if len(drifts) > 0 {
		log.WithField("products", len(drifts)).Warn("[CRON] Исправлены остатки товаров")
	}
}

func (s *Scheduler) purgeSessions(ctx context.Context) {
	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка чистки сессий")
		return
	}
	if n > 0 {
		log.WithField("sessions", n).Info("[CRON] Удалены истёкшие сессии")
	}
}
