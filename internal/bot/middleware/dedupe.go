package middleware

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

// DefaultDedupeWindow — окно подавления повторной команды.
const DefaultDedupeWindow = 3 * time.Second

type dedupeKey struct {
	actor     string
	operation string
}

// DedupeGuard гасит повторный запуск одной и той же команды одним
// пользователем в течение короткого окна. Это только подсказка: ядро
// магазина остаётся корректным и без неё.
type DedupeGuard struct {
	mu     sync.Mutex
	seen   *lru.Cache[dedupeKey, time.Time]
	window time.Duration
	now    func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewDedupeGuard создаёт guard не более чем на capacity ключей.
// window используется фоновой очисткой; ShouldSuppress принимает своё окно.
func NewDedupeGuard(capacity int, window time.Duration) (*DedupeGuard, error) {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	cache, err := lru.New[dedupeKey, time.Time](capacity)
	if err != nil {
		return nil, err
	}
	g := &DedupeGuard{
		seen:   cache,
		window: window,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	go g.cleanup(sweepInterval(window))
	return g, nil
}

// Close останавливает фоновую очистку. Безопасно вызывать повторно.
func (g *DedupeGuard) Close() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

// ShouldSuppress возвращает true, если та же пара (actor, operation)
// срабатывала меньше window назад; метка времени при этом не обновляется.
// Иначе запоминает текущий момент и возвращает false.
func (g *DedupeGuard) ShouldSuppress(actor, operation string, window time.Duration) bool {
	if window <= 0 {
		window = g.window
	}
	key := dedupeKey{actor: actor, operation: operation}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.seen.Get(key); ok && now.Sub(last) < window {
		log.WithFields(log.Fields{
			"actor":     actor,
			"operation": operation,
		}).Debug("Повторная команда подавлена")
		return true
	}
	g.seen.Add(key, now)
	return false
}

// Len — сколько ключей сейчас хранится.
func (g *DedupeGuard) Len() int {
	return g.seen.Len()
}

// sweep удаляет записи старше окна.
func (g *DedupeGuard) sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.window)
	removed := 0
	for _, key := range g.seen.Keys() {
		last, ok := g.seen.Peek(key)
		if ok && last.Before(cutoff) {
			g.seen.Remove(key)
			removed++
		}
	}
	return removed
}

func (g *DedupeGuard) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			if n := g.sweep(); n > 0 {
				log.WithField("removed", n).Debug("Очистка dedupe-guard")
			}
		}
	}
}

func sweepInterval(window time.Duration) time.Duration {
	interval := 10 * window
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
