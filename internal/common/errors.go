// Package common — errors.go определяет типизированные ошибки ядра магазина.
// Каждая ошибка относится к одному «виду» (sentinel), поэтому обработчики
// проверяют вид через errors.Is, а подробности достают через errors.As.
package common

import (
	"errors"
	"fmt"
)

// Виды ошибок. Сообщения этих sentinel-ошибок не показываются пользователю
// напрямую — только через конкретные типы ниже.
var (
	// ErrValidation — некорректные или вне диапазона входные данные
	ErrValidation = errors.New("некорректные данные")
	// ErrNotFound — товар, пользователь или запись мира не найдены
	ErrNotFound = errors.New("не найдено")
	// ErrConflict — дубликат ключа или повторная установка тех же значений
	ErrConflict = errors.New("конфликт")
	// ErrInsufficientStock — на складе меньше единиц, чем запрошено
	ErrInsufficientStock = errors.New("недостаточно товара на складе")
	// ErrInsufficientBalance — баланс ушёл бы в минус
	ErrInsufficientBalance = errors.New("недостаточно средств на балансе")
	// ErrPersistence — БД недоступна или транзакция не прошла
	ErrPersistence = errors.New("ошибка хранилища")
)

// Ошибки уровня диспетчера команд (выше ядра)
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrDeliveryForbidden — пользователь закрыл личные сообщения для бота
	ErrDeliveryForbidden = errors.New("не удалось отправить сообщение пользователю")
)

// ValidationError описывает, какое поле не прошло проверку.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid — короткий конструктор ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError — ссылка на отсутствующую сущность.
type NotFoundError struct {
	Entity string // "товар", "пользователь", "мир"
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s не найден", e.Entity)
	}
	return fmt.Sprintf("%s %s не найден", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound — короткий конструктор NotFoundError.
func NotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

// ConflictError — нарушение уникальности или no-op изменение.
type ConflictError struct {
	Entity string
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Key, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InsufficientStockError несёт сколько просили и сколько реально есть.
type InsufficientStockError struct {
	ProductCode string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("товар %s: запрошено %d, доступно %d", e.ProductCode, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InsufficientBalanceError — списание увело бы валюту в минус.
type InsufficientBalanceError struct {
	GrowID   string
	Currency string
	Balance  int64
	Amount   int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: недостаточно %s (есть %d, нужно %d)", e.GrowID, e.Currency, e.Balance, e.Amount)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// PersistenceError оборачивает ошибку драйвера БД.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence оборачивает err в PersistenceError, если у ошибки ещё нет вида.
// Ошибки с видом (NotFound, Conflict, ...) возвращаются как есть, чтобы откат
// транзакции не терял их.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Classified сообщает, что ошибка уже относится к одному из видов ядра.
func Classified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPersistence)
}
