package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/iancoleman/strcase"
	"github.com/segmentio/encoding/json"
)

const (
	gt       = "gt"
	gte      = "gte"
	mx       = "max"
	mn       = "min"
	ne       = "ne"
	oneof    = "oneof"
	required = "required"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	field := strings.Trim(err.Field, ".")
	if field == "" {
		return "Expected " + describeType(err.Type)
	}
	return fmt.Sprintf("%s: Expected %s", field, describeType(err.Type))
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%s: Expected %s", err.Key, describeType(err.Type))
}

// describeType names a Go type the way a JSON client would think of it.
func describeType(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return t.String()
	}
}

func isNumeric(kind reflect.Kind) bool {
	//exhaustive:ignore
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func plural(resource, n string) string {
	if n != "1" {
		return resource + "s"
	}
	return resource
}

// formatValidationError renders a single field failure as "field: message".
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	return field + ": " + validationMessage(err, strcase.ToCamel(field))
}

func validationMessage(err validator.FieldError, label string) string {
	kind := err.Kind()

	switch err.Tag() {
	case required:
		return label + " is required"
	case gt:
		if isNumeric(kind) && err.Param() == "0" {
			return "Expected positive integer"
		}
		return fmt.Sprintf("Number must be greater than %s", err.Param())
	case gte:
		return fmt.Sprintf("Number must be greater than or equal to %s", err.Param())
	case mn:
		switch {
		case isNumeric(kind):
			return fmt.Sprintf("Number must be greater than or equal to %s", err.Param())
		case kind == reflect.Slice:
			return fmt.Sprintf("%s must contain at least %s %s", label, err.Param(), plural("element", err.Param()))
		case err.Param() == "1":
			return label + " is required"
		default:
			return fmt.Sprintf("%s must contain at least %s %s", label, err.Param(), plural("character", err.Param()))
		}
	case mx:
		switch {
		case isNumeric(kind):
			return fmt.Sprintf("Number must be less than or equal to %s", err.Param())
		case kind == reflect.Slice:
			return fmt.Sprintf("%s must contain at most %s %s", label, err.Param(), plural("element", err.Param()))
		default:
			return fmt.Sprintf("%s must contain at most %s %s", label, err.Param(), plural("character", err.Param()))
		}
	case ne:
		return fmt.Sprintf("%s can't be %q", label, err.Param())
	case oneof:
		valids := []string{}
		for _, p := range strings.Fields(err.Param()) {
			valids = append(valids, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%s must be one of the following: %s", label, strings.Join(valids, ", "))
	default:
		return label + " is invalid"
	}
}
