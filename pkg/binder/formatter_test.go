package binder

import (
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/gorilla/schema"
	"github.com/stretchr/testify/assert"
)

type mockFieldError struct {
	tag   string
	field string
	param string
	kind  reflect.Kind
}

func (e *mockFieldError) Error() string           { return "Mock Field Error" }
func (e *mockFieldError) Tag() string             { return e.tag }
func (e *mockFieldError) ActualTag() string       { return e.tag }
func (e *mockFieldError) Namespace() string       { return "" }
func (e *mockFieldError) StructNamespace() string { return "" }
func (e *mockFieldError) Field() string           { return e.field }
func (e *mockFieldError) StructField() string     { return "" }
func (e *mockFieldError) Value() interface{}      { return "" }
func (e *mockFieldError) Param() string           { return e.param }
func (e *mockFieldError) Kind() reflect.Kind {
	if e.kind == 0 {
		return reflect.String
	}
	return e.kind
}
func (e *mockFieldError) Type() reflect.Type               { return reflect.TypeOf("") }
func (e *mockFieldError) Translate(_ ut.Translator) string { return "" }

func TestFormatValidationError(t *testing.T) {
	cases := []struct {
		tag   string
		param string
		kind  reflect.Kind
		msg   string
	}{
		{required, "", 0, "multi_word: MultiWord is required"},
		// String min/max
		{mn, "1", reflect.String, "multi_word: MultiWord is required"},
		{mn, "3", reflect.String, "multi_word: MultiWord must contain at least 3 characters"},
		{mx, "200", reflect.String, "multi_word: MultiWord must contain at most 200 characters"},
		{mx, "1", reflect.String, "multi_word: MultiWord must contain at most 1 character"},
		// Numeric
		{gt, "0", reflect.Int, "multi_word: Expected positive integer"},
		{gt, "5", reflect.Int, "multi_word: Number must be greater than 5"},
		{gte, "1", reflect.Int, "multi_word: Number must be greater than or equal to 1"},
		{mn, "1", reflect.Int, "multi_word: Number must be greater than or equal to 1"},
		{mx, "50", reflect.Int64, "multi_word: Number must be less than or equal to 50"},
		// Slice
		{mx, "5", reflect.Slice, "multi_word: MultiWord must contain at most 5 elements"},
		{mn, "1", reflect.Slice, "multi_word: MultiWord must contain at least 1 element"},
		// Other
		{ne, "20", 0, `multi_word: MultiWord can't be "20"`},
		{oneof, "one two", 0, `multi_word: MultiWord must be one of the following: "one", "two"`},
		{"foo", "", 0, "multi_word: MultiWord is invalid"},
	}

	for _, tt := range cases {
		err := mockFieldError{tag: tt.tag, field: "multi_word", param: tt.param, kind: tt.kind}
		msg := formatValidationError(&err)
		assert.Equal(t, tt.msg, msg)
	}
}

func TestFormatSchemaConversionError(t *testing.T) {
	msg := formatSchemaConversionError(schema.ConversionError{Key: "id", Type: reflect.TypeOf(0)})
	assert.Equal(t, "id: Expected number", msg)
}

func TestDescribeType(t *testing.T) {
	var b *bool
	assert.Equal(t, "boolean", describeType(reflect.TypeOf(b)))
	assert.Equal(t, "string", describeType(reflect.TypeOf("")))
	assert.Equal(t, "number", describeType(reflect.TypeOf(1.5)))
	assert.Equal(t, "array", describeType(reflect.TypeOf([]int{})))
	assert.Equal(t, "object", describeType(reflect.TypeOf(struct{}{})))
	assert.Equal(t, "value", describeType(nil))
}
