package binder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shishobooks/booktracker/pkg/errcodes"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Context keys that routes can set to relax the binder's defaults.
const (
	DisallowUnknownFieldsKey = "disallow_unknown_fields"
	DisallowEmptyBodyKey     = "disallow_empty_body"
)

// Validatable is implemented by payloads that have rules spanning more than
// one field. Validate is run after the tag-based validation, and its message
// is reported alongside any field errors.
type Validatable interface {
	Validate() error
}

// Binder is a custom struct that implements the Echo Binder interface. It binds
// path params and the request payload to a struct, uses mold to clean up the
// params, and validator to validate them.
type Binder struct {
	paramDecoder        *schema.Decoder
	queryDecoder        *schema.Decoder
	lenientQueryDecoder *schema.Decoder
	formDecoder         *schema.Decoder
	conform             *mold.Transformer
	validate            *validator.Validate
}

// New initializes a new Binder instance with the appropriate validation
// functions registered.
func New() (*Binder, error) {
	paramDecoder := schema.NewDecoder()
	paramDecoder.SetAliasTag("param")
	paramDecoder.IgnoreUnknownKeys(true)
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")
	lenientQueryDecoder := schema.NewDecoder()
	lenientQueryDecoder.SetAliasTag("query")
	lenientQueryDecoder.IgnoreUnknownKeys(true)
	formDecoder := schema.NewDecoder()
	formDecoder.SetAliasTag("form")
	conform := modifiers.New()
	validate := validator.New()
	validate.RegisterTagNameFunc(fieldName)

	return &Binder{paramDecoder, queryDecoder, lenientQueryDecoder, formDecoder, conform, validate}, nil
}

// fieldName is the name a field is reported under: its JSON name, or its path
// param name for fields that only come from the URL.
func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		name = fld.Tag.Get("param")
	}
	if name == "-" {
		return ""
	}
	return name
}

// Bind binds, modifies, and validates payloads against the given struct.
// Decoding problems don't stop binding: type errors from the body and the path
// are collected and reported together with the validation failures of the
// remaining fields.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	disallowEmptyBody := true
	if disallow, ok := c.Get(DisallowEmptyBodyKey).(bool); ok {
		disallowEmptyBody = disallow
	}
	disallowUnknownFields := true
	if disallow, ok := c.Get(DisallowUnknownFieldsKey).(bool); ok {
		disallowUnknownFields = disallow
	}

	errs := &fieldErrors{fields: map[string]bool{}}

	hasBody, err := b.bindBody(i, c, disallowUnknownFields, errs)
	if err != nil {
		return err
	}
	if !hasBody {
		if req.Method == http.MethodGet || req.Method == http.MethodDelete {
			decoder := b.queryDecoder
			if !disallowUnknownFields {
				decoder = b.lenientQueryDecoder
			}
			if err := b.decodeValues(i, c.QueryParams(), decoder, errs); err != nil {
				return err
			}
		} else if disallowEmptyBody {
			return errcodes.EmptyRequestBody()
		}
	}

	if names := c.ParamNames(); len(names) > 0 {
		params := url.Values{}
		for idx, name := range names {
			params.Set(name, c.ParamValues()[idx])
		}
		if err := b.decodeValues(i, params, b.paramDecoder, errs); err != nil {
			return err
		}
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	typeErrorsOnly := len(errs.msgs) > 0
	if err := b.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.WithStack(err)
		}
		for _, fe := range verrs {
			// a field that failed to decode has already been reported
			if errs.fields[fe.Field()] {
				continue
			}
			errs.msgs = append(errs.msgs, formatValidationError(fe))
			typeErrorsOnly = false
		}
	}
	// rules spanning fields only make sense once every field decoded
	if v, ok := i.(Validatable); ok && len(errs.fields) == 0 {
		if err := v.Validate(); err != nil {
			errs.msgs = append(errs.msgs, err.Error())
			typeErrorsOnly = false
		}
	}
	if len(errs.msgs) == 0 {
		return nil
	}
	if typeErrorsOnly {
		return errcodes.ValidationTypeError(strings.Join(errs.msgs, "; "))
	}
	return errcodes.ValidationError(strings.Join(errs.msgs, "; "))
}

// fieldErrors collects per-field decoding failures.
type fieldErrors struct {
	msgs   []string
	fields map[string]bool
}

func (fe *fieldErrors) add(field, msg string) {
	fe.fields[field] = true
	fe.msgs = append(fe.msgs, msg)
}

// bindBody decodes the request body into i. It reports whether there was a
// body at all.
func (b *Binder) bindBody(i interface{}, c echo.Context, disallowUnknownFields bool, errs *fieldErrors) (bool, error) {
	req := c.Request()
	if req.ContentLength == 0 || req.Body == nil || req.Body == http.NoBody {
		return false, nil
	}

	ctype := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		defer req.Body.Close()
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return true, errors.WithStack(err)
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			return false, nil
		}
		return true, b.bindJSON(i, c, raw, disallowUnknownFields, errs)
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		params, err := c.FormParams()
		if err != nil {
			return true, errcodes.MalformedPayload()
		}
		return true, b.decodeValues(i, params, b.formDecoder, errs)
	default:
		return true, errcodes.UnsupportedMediaType()
	}
}

// bindJSON decodes a JSON object one key at a time so that every key with the
// wrong type is reported, not just the first one. An explicit null is a type
// error too.
func (b *Binder) bindJSON(i interface{}, c echo.Context, raw []byte, disallowUnknownFields bool, errs *fieldErrors) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return errcodes.ValidationTypeError("Expected object")
		}
		return errcodes.MalformedPayload()
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := object[key]

		if string(bytes.TrimSpace(value)) == "null" {
			if name, typ, ok := jsonField(i, key); ok {
				errs.add(name, fmt.Sprintf("%s: Expected %s", name, describeType(typ)))
				continue
			}
		}

		single, err := json.Marshal(map[string]json.RawMessage{key: value})
		if err != nil {
			return errors.WithStack(err)
		}
		dec := json.NewDecoder(bytes.NewReader(single))
		if disallowUnknownFields {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(i); err != nil {
			// return better error message when there are unknown fields
			if matches := unknownFieldsRE.FindAllStringSubmatch(err.Error(), -1); len(matches) > 0 && len(matches[0]) > 1 {
				return errcodes.UnknownParameter(matches[0][1])
			}

			// collect type errors so the other keys still get decoded
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				field := strings.SplitN(strings.Trim(typeErr.Field, "."), ".", 2)[0]
				if field == "" {
					field = key
				}
				errs.add(field, formatUnmarshalTypeError(typeErr))
				continue
			}

			logger.FromEchoContext(c).Err(err).Warn("unknown json decode error")

			return errcodes.MalformedPayload()
		}
	}
	return nil
}

// jsonField finds the top-level field of i that the JSON key decodes into,
// matching case-insensitively like encoding/json does.
func jsonField(i interface{}, key string) (string, reflect.Type, bool) {
	t := reflect.TypeOf(i)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return "", nil, false
	}
	for idx := 0; idx < t.NumField(); idx++ {
		fld := t.Field(idx)
		if !fld.IsExported() {
			continue
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = fld.Name
		}
		if strings.EqualFold(name, key) {
			return name, fld.Type, true
		}
	}
	return "", nil, false
}

func (b *Binder) decodeValues(i interface{}, params url.Values, decoder *schema.Decoder, errs *fieldErrors) error {
	if err := decoder.Decode(i, params); err != nil {
		var multi schema.MultiError
		if !errors.As(err, &multi) {
			return errors.WithStack(err)
		}

		keys := make([]string, 0, len(multi))
		for key := range multi {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			err := multi[key]
			var conv schema.ConversionError
			if errors.As(err, &conv) {
				errs.add(conv.Key, formatSchemaConversionError(conv))
				continue
			}
			var unknown schema.UnknownKeyError
			if errors.As(err, &unknown) {
				return errcodes.UnknownParameter(unknown.Key)
			}
			return errors.WithStack(err)
		}
	}
	return nil
}
