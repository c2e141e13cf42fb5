// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report koanf paths instead of Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// FieldError describes one invalid setting.
type FieldError struct {
	// Field is the koanf path of the setting, e.g. shipper.persist.
	Field   string
	Message string
}

// ValidationError lists every invalid setting found by Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return strings.Join(parts, "; ")
}

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Validate checks struct tag rules and then the cross-field rules.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(fieldPath(fe), translateError(fe))
		}
	}

	validators := []func(*ValidationError){
		c.validateTransport,
		c.validateStorage,
		c.validateSource,
	}
	for _, v := range validators {
		v(verr)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (c *Config) validateTransport(verr *ValidationError) {
	switch c.Transport.Kind {
	case TransportHTTP:
		u, err := url.Parse(c.Shipper.URL)
		if c.Shipper.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.add("shipper.url", "must be an http or https URL when transport.kind is http")
		}
	case TransportNATS:
		if c.Transport.NATS.URL == "" {
			verr.add("transport.nats.url", "is required when transport.kind is nats")
		}
		if c.Transport.NATS.Subject == "" {
			verr.add("transport.nats.subject", "is required when transport.kind is nats")
		}
	}
}

func (c *Config) validateStorage(verr *ValidationError) {
	if !c.Storage.Enabled {
		if c.Shipper.Persist == "always" {
			verr.add("shipper.persist", "always requires storage.enabled")
		}
		return
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		verr.add("storage.path", "is required unless storage.in_memory is set")
	}
}

func (c *Config) validateSource(verr *ValidationError) {
	if c.Source.Follow && len(c.Source.Files) == 0 {
		verr.add("source.follow", "requires source.files")
	}
	if !c.Source.Stdin && len(c.Source.Files) == 0 && !c.Shipper.AttachLogger {
		verr.add("source", "nothing to ship: enable source.stdin, list source.files or set shipper.attach_logger")
	}
}

// fieldPath turns a validator namespace such as Config.shipper.persist into
// the koanf path shipper.persist.
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":       "must be one of: %s",
	"gte":         "must be greater than or equal to %s",
	"lte":         "must be less than or equal to %s",
	"gt":          "must be greater than %s",
	"lt":          "must be less than %s",
	"required_if": "is required when %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return "is required"
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
