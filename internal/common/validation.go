package common

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// Check прогоняет значение через правила ozzo-validation и превращает
// первое нарушение в ValidationError с именем поля.
func Check(field string, value interface{}, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return Invalid(field, err.Error())
	}
	return nil
}

// CheckAll возвращает первую ошибку из списка проверок.
func CheckAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
