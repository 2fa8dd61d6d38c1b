// Package errs: ошибки домена helpdesk-service.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNoChatBinding  = errors.New("no chat binding for ticket")
	ErrNoDispatcher   = errors.New("no dispatcher for channel")
	ErrUnauthorized   = errors.New("unauthorized")
)

// ValidationError: пустое или неверное поле, до обращения к хранилищу.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func Validation(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// PersistenceError: хранилище отклонило операцию.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// DispatchError: исходящий транспорт отклонил отправку.
type DispatchError struct {
	Channel string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ConfigurationError: не задан обязательный параметр транспорта (например, токен бота).
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s is not set", e.Key)
}

// TicketOperationError помечает ошибку операцией сервиса тикетов.
type TicketOperationError struct {
	Op       string
	TicketID string
	Err      error
}

func (e *TicketOperationError) Error() string {
	if e.TicketID == "" {
		return fmt.Sprintf("ticket %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ticket %s %s: %v", e.Op, e.TicketID, e.Err)
}

func (e *TicketOperationError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}

func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
