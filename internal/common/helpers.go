// Package common содержит общие утилиты, используемые во всём проекте:
// плюрализация, форматирование чисел и дат, разбиение длинных сообщений
// и разбор построчного стока.
package common

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// Pluralize выбирает форму слова для числа n по правилам русского языка.
// forms: {одна, две, пять} — например {"штука", "штуки", "штук"}.
//
// Примеры:
//
//	Pluralize(1, itemForms)  → "штука"
//	Pluralize(3, itemForms)  → "штуки"
//	Pluralize(11, itemForms) → "штук"
func Pluralize(n int64, forms [3]string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	// 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return forms[0]
	}
	// 2-4, 22-24 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return forms[1]
	}
	return forms[2]
}

var itemForms = [3]string{"штука", "штуки", "штук"}

// PluralizeItems возвращает форму слова «штука» для числа n.
func PluralizeItems(n int64) string {
	return Pluralize(n, itemForms)
}

// FormatItems форматирует количество единиц: FormatItems(3) → "3 штуки".
func FormatItems(n int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(n), PluralizeItems(n))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// FormatDateTime форматирует время как "02.01.2006 15:04" в заданной зоне.
// Нулевое время выводится как прочерк.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "—"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// LoadLocation загружает часовой пояс, при ошибке возвращает UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SplitMessage режет текст на части не длиннее limit символов (рун),
// сохраняя порядок. По возможности разрез делается по переводу строки,
// чтобы не рвать единицу стока посередине.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= limit {
			parts = append(parts, string(runes))
			break
		}
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	return parts
}

// NonBlankLines возвращает непустые строки (с обрезанными пробелами).
// Одна строка = одна единица стока.
func NonBlankLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ReadLines читает построчный сток из r (файл, вложение).
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return NonBlankLines(lines), nil
}
