// Package validation содержит функции валидации входных данных форм сайта.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ProposalForm — форма предложения проекта сообществом.
type ProposalForm struct {
	Title       string   `json:"title" label:"Project title" validate:"min=3,max=50"`
	Description string   `json:"description" label:"Description" validate:"min=10,max=500"`
	Tags        []string `json:"tags"`
	Budget      float64  `json:"budget" label:"Budget" validate:"gte=0"`
	Name        string   `json:"name" label:"Name" validate:"min=2"`
	Email       string   `json:"email" label:"Email" validate:"required,email"`
}

// ProjectEditForm описывает форму редактирования проекта администратором.
// Пустые указатели означают, что поле не меняется.
type ProjectEditForm struct {
	Title       *string  `json:"title" label:"Title" validate:"omitnil,min=3"`
	Description *string  `json:"description" label:"Description" validate:"omitnil,min=10"`
	Tags        []string `json:"tags"`
	Status      *string  `json:"status" label:"Status" validate:"omitnil,oneof=past current future proposed"`
	Image       *string  `json:"imageUrl" label:"Image" validate:"omitnil,max=2048"`
}

// ConsultingForm — заявка на разработку проекта со страницы консалтинга.
type ConsultingForm struct {
	Name        string  `json:"name" label:"Name" validate:"min=2"`
	Email       string  `json:"email" label:"Email" validate:"required,email"`
	ProjectIdea string  `json:"projectIdea" label:"Project idea" validate:"min=10,max=1000"`
	Budget      float64 `json:"budget"`
}

// PaymentForm описывает форму оплаты. Сумма проверяется отдельно.
type PaymentForm struct {
	Email string `json:"email" label:"Email" validate:"required,email"`
}

// LoginForm описывает форму входа администратора.
type LoginForm struct {
	Password string `json:"password" label:"Password" validate:"required"`
}

// FieldError описывает ошибку в конкретном поле формы.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error содержит список ошибок полей формы.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Fields))
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct проверяет форму и возвращает *Error с сообщениями для пользователя.
func Struct(form any) error {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	t := reflect.TypeOf(form)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		label := fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if l := sf.Tag.Get("label"); l != "" {
				label = l
			}
		}
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: message(label, fe),
		})
	}
	return out
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "email" {
			return "Please enter a valid email address."
		}
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be a valid non-negative number.", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid.", label)
}
