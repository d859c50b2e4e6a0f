package bot

import (
	"errors"
	"fmt"
	"unicode"

	log "github.com/sirupsen/logrus"

	"github.com/fdygg/DC-store/internal/bot/command"
	"github.com/fdygg/DC-store/internal/common"
	"github.com/fdygg/DC-store/internal/features/admin"
)

// Render превращает ошибку команды в ответ пользователю. Ошибки хранилища
// и неизвестные ошибки логируются и наружу не показываются.
func Render(spec *command.Spec, err error) string {
	var (
		validationErr *common.ValidationError
		stockErr      *common.InsufficientStockError
		balanceErr    *common.InsufficientBalanceError
		notFoundErr   *common.NotFoundError
		conflictErr   *common.ConflictError
	)

	switch {
	case errors.Is(err, command.ErrUsage):
		return "ℹ️ Использование: " + spec.Usage
	case errors.As(err, &validationErr):
		return fmt.Sprintf("❌ Некорректные данные (%s): %s", validationErr.Field, validationErr.Message)
	case errors.As(err, &stockErr):
		return fmt.Sprintf("❌ Недостаточно товара %s: запрошено %d, в наличии %d",
			stockErr.ProductCode, stockErr.Requested, stockErr.Available)
	case errors.As(err, &balanceErr):
		return fmt.Sprintf("❌ Недостаточно %s у %s: на балансе %s, нужно %s",
			balanceErr.Currency, balanceErr.GrowID,
			common.FormatNumber(balanceErr.Balance), common.FormatNumber(balanceErr.Amount))
	case errors.As(err, &notFoundErr):
		return "❌ " + capitalize(notFoundErr.Error())
	case errors.As(err, &conflictErr):
		return "❌ " + capitalize(conflictErr.Error())
	case errors.Is(err, common.ErrNotAdmin):
		return "❌ " + capitalize(common.ErrNotAdmin.Error())
	case errors.Is(err, admin.ErrSessionRequired):
		return "🔐 " + capitalize(admin.ErrSessionRequired.Error())
	case errors.Is(err, common.ErrWrongPassword):
		return "❌ " + capitalize(common.ErrWrongPassword.Error())
	case errors.Is(err, common.ErrTooManyAttempts):
		return "⛔ " + capitalize(common.ErrTooManyAttempts.Error())
	case errors.Is(err, common.ErrDeliveryForbidden):
		return "❌ Не удалось отправить сообщение: пользователь закрыл личку"
	case errors.Is(err, common.ErrPersistence):
		log.WithError(err).WithField("command", spec.Name).Error("Ошибка хранилища")
		return "❌ Ошибка базы данных, попробуйте позже"
	default:
		log.WithError(err).WithField("command", spec.Name).Error("Ошибка команды")
		return "❌ Внутренняя ошибка, попробуйте позже"
	}
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(append([]rune{unicode.ToUpper(r[0])}, r[1:]...))
}
