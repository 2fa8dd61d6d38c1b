package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// RegisterValidators регистрирует теги enum-полей, которые используются в struct tags запросов.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("ticket_status", isTicketStatus); err != nil {
		return err
	}
	if err := v.RegisterValidation("ticket_priority", isTicketPriority); err != nil {
		return err
	}
	if err := v.RegisterValidation("ticket_channel", isChannel); err != nil {
		return err
	}
	return nil
}

// isTicketStatus принимает и legacy-алиасы (pending, solved)
func isTicketStatus(fl validator.FieldLevel) bool {
	_, ok := model.ParseTicketStatus(fl.Field().String())
	return ok
}

func isTicketPriority(fl validator.FieldLevel) bool {
	_, ok := model.ParseTicketPriority(fl.Field().String())
	return ok
}

func isChannel(fl validator.FieldLevel) bool {
	_, ok := model.ParseChannel(fl.Field().String())
	return ok
}
