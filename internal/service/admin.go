package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAdminPassword хеширует пароль администратора для передачи в Options.
func HashAdminPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return hash, nil
}

// AdminEnabled сообщает, задан ли пароль администратора.
func (s *Service) AdminEnabled() bool {
	return len(s.adminHash) > 0
}

// AuthenticateAdmin проверяет пароль администратора.
func (s *Service) AuthenticateAdmin(password string) error {
	if !s.AdminEnabled() {
		return ErrAdminDisabled
	}

	err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("compare admin password: %w", err)
	}
	return nil
}
