// Package command — явный реестр команд бота: имя (и синонимы) →
// обработчик плюс требования к правам. Диспетчер в internal/bot находит
// команду статическим поиском по реестру.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrUsage — аргументы не подходят под команду. Диспетчер ответит
// строкой Usage из Spec.
var ErrUsage = errors.New("неверные аргументы команды")

// Prefixes — с чего может начинаться команда.
var Prefixes = []string{"!", ".", "/"}

// Request — разобранная команда вместе с отправителем.
type Request struct {
	ChatID   int64
	UserID   int64
	Username string
	Private  bool     // личный чат с ботом
	Name     string   // каноническое имя команды
	Args     []string // аргументы из первой строки сообщения
	Text     string   // исходный текст сообщения
	Message  *tgbotapi.Message
}

// Actor — как отправитель записывается в журнал и склад.
func (r *Request) Actor() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return fmt.Sprintf("id%d", r.UserID)
}

// Tail возвращает исходный текст после имени команды и первых n
// аргументов, с сохранением переводов строк.
func (r *Request) Tail(n int) string {
	rest := strings.TrimSpace(r.Text)
	for i := 0; i <= n; i++ {
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			return ""
		}
		rest = strings.TrimLeftFunc(rest[idx:], unicode.IsSpace)
	}
	return strings.TrimSpace(rest)
}

// Handler выполняет команду и возвращает текст ответа.
type Handler func(ctx context.Context, req *Request) (string, error)

// Spec — описание одной команды.
type Spec struct {
	Name        string
	Aliases     []string
	Usage       string // строка для help и ответа на ErrUsage
	Privileged  bool   // только для администраторов
	Dedupe      bool   // глушить повтор той же команды тем же пользователем
	PrivateOnly bool   // только в личке с ботом
	Sensitive   bool   // удалить сообщение после обработки (пароль)
	Handler     Handler
}

// Registry — реестр команд. Регистрация идёт при старте, дальше только
// чтение, поэтому мьютекс не нужен.
type Registry struct {
	byName map[string]*Spec
	specs  []*Spec
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Spec)}
}

// Register добавляет команду. Повтор имени или синонима — ошибка.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" || s.Handler == nil {
		return fmt.Errorf("команда без имени или обработчика")
	}
	spec := s
	keys := append([]string{s.Name}, s.Aliases...)
	for _, k := range keys {
		if _, dup := r.byName[strings.ToLower(k)]; dup {
			return fmt.Errorf("команда %q уже зарегистрирована", k)
		}
	}
	for _, k := range keys {
		r.byName[strings.ToLower(k)] = &spec
	}
	r.specs = append(r.specs, &spec)
	return nil
}

// MustRegister — Register, который паникует на ошибке. Для wiring при старте.
func (r *Registry) MustRegister(specs ...Spec) {
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Lookup ищет команду по имени или синониму без учёта регистра.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	s, ok := r.byName[strings.ToLower(name)]
	return s, ok
}

// All возвращает команды, отсортированные по имени.
func (r *Registry) All() []*Spec {
	out := make([]*Spec, len(r.specs))
	copy(out, r.specs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parse разбирает текст на имя команды и аргументы первой строки.
// Поддерживает префиксы !, . и /, а также суффикс @botname.
func Parse(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range Prefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	firstLine, _, _ := strings.Cut(text, "\n")
	parts := strings.Fields(firstLine)
	if len(parts) == 0 {
		return "", nil, false
	}

	name, _, _ = strings.Cut(parts[0], "@")
	if name == "" {
		return "", nil, false
	}
	return name, parts[1:], true
}
