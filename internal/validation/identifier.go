// Package validation checks identifiers shared by the device and the server.
package validation

import (
	"fmt"
	"regexp"
)

// IdentifierPattern определяет допустимый формат идентификаторов
// (тип и id сущности, арендатор, устройство).
// Первый символ - буква или цифра, далее также _ . : -
// Длина: 1-128 символов
var IdentifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.:-]*$`)

// MaxIdentifierLen максимальная длина идентификатора
const MaxIdentifierLen = 128

// ValidateIdentifier проверяет идентификатор. kind используется в тексте ошибки.
func ValidateIdentifier(kind, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}

	if len(value) > MaxIdentifierLen {
		return fmt.Errorf("%s must not exceed %d characters", kind, MaxIdentifierLen)
	}

	if !IdentifierPattern.MatchString(value) {
		return fmt.Errorf("%s %q can only contain letters, numbers, '_', '.', ':' and '-'", kind, value)
	}

	return nil
}
