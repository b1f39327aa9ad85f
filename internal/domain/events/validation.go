package events

import (
	"errors"
	"strings"
	"time"

	"github.com/Togather-Foundation/agenda/internal/sanitize"
	"github.com/Togather-Foundation/agenda/internal/validation"
)

// Draft is the client-supplied event body, before validation.
type Draft struct {
	Title       string `json:"title" validate:"required"`
	Date        string `json:"date" validate:"required,calendardate"`
	Time        string `json:"time" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required,category"`
}

// Input is a validated draft with its derived color.
type Input struct {
	Title       string
	Date        time.Time
	Time        string
	Location    string
	Description string
	Category    Category
	Color       string
}

var draftMessages = validation.Messages{
	"title":             "Título é obrigatório",
	"date.required":     "Data é obrigatória",
	"date.calendardate": "Data inválida",
	"time":              "Horário é obrigatório",
	"location":          "Local é obrigatório",
	"category.required": "Categoria é obrigatória",
	"category.category": "Categoria inválida",
}

var draftValidator = newDraftValidator()

func newDraftValidator() *validation.Validator {
	v := validation.New()
	if err := v.RegisterString("calendardate", func(s string) bool {
		_, err := ParseDate(s)
		return err == nil
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterString("category", func(s string) bool {
		return Category(s).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the UTC
// calendar day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// Validate sanitizes the draft and checks every field. It returns
// *validation.Error listing all failures.
func (d Draft) Validate() (Input, error) {
	d.Title = sanitize.Text(d.Title)
	d.Time = sanitize.Text(d.Time)
	d.Location = sanitize.Text(d.Location)
	d.Description = sanitize.Text(d.Description)
	d.Date = strings.TrimSpace(d.Date)
	d.Category = strings.TrimSpace(d.Category)

	if err := draftValidator.Struct(d, draftMessages); err != nil {
		return Input{}, err
	}

	date, _ := ParseDate(d.Date)
	category := Category(d.Category)
	color, _ := ColorFor(category)
	return Input{
		Title:       d.Title,
		Date:        date,
		Time:        d.Time,
		Location:    d.Location,
		Description: d.Description,
		Category:    category,
		Color:       color,
	}, nil
}

func isValidation(err error) bool {
	var verr *validation.Error
	return errors.As(err, &verr)
}
