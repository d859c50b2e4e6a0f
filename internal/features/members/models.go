// Package members ведёт справочник пользователей Telegram, писавших боту.
// По нему команда send находит получателя по @username.
// models.go описывает структуру таблицы members.
package members

import (
	"strconv"
	"time"
)

// Member — пользователь Telegram, которого бот уже видел.
type Member struct {
	ID        int64     `db:"id"`         // автоинкрементный ID записи в БД
	UserID    int64     `db:"user_id"`    // Telegram user ID (уникальный)
	Username  string    `db:"username"`   // @username (может быть пустым)
	FirstName string    `db:"first_name"` // имя пользователя
	LastName  string    `db:"last_name"`  // фамилия (может быть пустой)
	CreatedAt time.Time `db:"created_at"` // когда впервые написал
	UpdatedAt time.Time `db:"updated_at"` // последнее обновление данных
}

// Profile — данные отправителя из апдейта Telegram.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — используется он, иначе — имя + фамилия.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	if name == "" {
		return strconv.FormatInt(m.UserID, 10)
	}
	return name
}
