package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength   = 20
	maxUserIDLength = 64
	maxCodeLength   = 12
	maxFrameBytes   = 512 * 1024
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
			_, err := validateRoomCode(fl.Field().String())
			return err == nil
		})
	})
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateUserID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", errors.New("user id is required")
	}
	if len(trimmed) > maxUserIDLength {
		return "", fmt.Errorf("user id must be %d characters or fewer", maxUserIDLength)
	}
	for _, r := range trimmed {
		if r > unicode.MaxASCII || unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", errors.New("user id contains unsupported characters")
		}
	}
	return trimmed, nil
}

// validateRoomCode accepts an empty code so creation can fall back to a
// generated one.
func validateRoomCode(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) < 4 || len(trimmed) > maxCodeLength {
		return "", fmt.Errorf("room code must be 4 to %d characters", maxCodeLength)
	}
	for _, r := range trimmed {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return "", errors.New("room code contains unsupported characters")
	}
	return trimmed, nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

// isSafeText allows any printable letter, mark, digit or space plus a small
// punctuation set, so names in any script pass.
func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == ' ' {
			continue
		}
		switch r {
		case '-', '_', '\'', '.', '!', '?':
			continue
		default:
			return false
		}
	}
	return true
}
