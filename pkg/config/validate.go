// Cellboard
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Cellboard.
//
// Cellboard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellboard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellboard.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/go-playground/validator/v10"
)

// ValidationError lists every field of the config that failed a check.
type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Namespace string
	Tag       string
	Param     string
	Value     any
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		msgs[i] = fe.message()
	}
	return strings.Join(msgs, "; ")
}

func (fe FieldError) message() string {
	field := fe.Namespace
	switch fe.Tag {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param)
	case "state":
		return fmt.Sprintf("%s: unknown state %q", field, fe.Value)
	case "notification":
		return fmt.Sprintf("%s: unknown notification %q", field, fe.Value)
	case "numeric":
		return fmt.Sprintf("%s: key %q must be a number", field, fe.Value)
	case "hostname_port":
		return field + " must be host:port"
	case "len":
		return fmt.Sprintf("%s must be %s character long", field, fe.Param)
	case "ascii":
		return field + " must be ASCII"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param)
	case "unique":
		return field + " must not contain duplicates"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("state", validateState)
	_ = v.RegisterValidation("notification", validateNotification)
	return v
}

func validateState(fl validator.FieldLevel) bool {
	_, err := models.ParseState(fl.Field().String())
	return err == nil
}

func validateNotification(fl validator.FieldLevel) bool {
	return slices.Contains(models.AllNotifications, fl.Field().String())
}

// Validate checks vals against the field rules.
func Validate(vals *Values) error {
	err := validate.Struct(vals)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	ve := &ValidationError{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		ve.Fields[i] = FieldError{
			Namespace: fe.Namespace(),
			Tag:       fe.Tag(),
			Param:     fe.Param(),
			Value:     fe.Value(),
		}
	}
	return ve
}
