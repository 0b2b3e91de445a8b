package feign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"

	"github.com/chadjaros/feign/errors"
)

// Encoder populates a request template's body from a value. bodyType is
// the declared type of the value as recorded in the method descriptor;
// form-encoded methods pass a map[string]string of the designated form
// fields instead and bodyType is the map's type. The content type of the
// body is owned by the encoder.
type Encoder interface {
	Encode(value interface{}, bodyType reflect.Type, template *RequestTemplate) error
}

// Decoder translates a successful response into a typed result.
type Decoder interface {
	DecodeResponse(ctx context.Context, res *http.Response, out interface{}) error
}

// ErrorDecoder classifies a non-success response into an error.
type ErrorDecoder interface {
	DecodeError(ctx context.Context, res *http.Response) error
}

// formMapType is the declared type form-encoded methods pass to the
// encoder.
var formMapType = reflect.TypeOf(map[string]string{})

// JSONEncoder writes any value as a JSON body.
type JSONEncoder struct{}

func (JSONEncoder) Encode(value interface{}, bodyType reflect.Type, template *RequestTemplate) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	template.SetBody(body, "application/json")
	return nil
}

// FormEncoder writes a map[string]string as an urlencoded form body and
// hands any other value to Fallback (JSON when Fallback is nil).
type FormEncoder struct {
	Fallback Encoder
}

func (e FormEncoder) Encode(value interface{}, bodyType reflect.Type, template *RequestTemplate) error {
	fields, ok := value.(map[string]string)
	if !ok {
		fallback := e.Fallback
		if fallback == nil {
			fallback = JSONEncoder{}
		}
		return fallback.Encode(value, bodyType, template)
	}
	values := make(url.Values, len(fields))
	for name, v := range fields {
		values.Set(name, v)
	}
	template.SetBody([]byte(values.Encode()), "application/x-www-form-urlencoded")
	return nil
}

// JSONDecoder reads a JSON body into the result. A nil result skips
// decoding, for methods without a return value.
type JSONDecoder struct{}

func (JSONDecoder) DecodeResponse(ctx context.Context, res *http.Response, out interface{}) error {
	if out == nil {
		_, err := io.Copy(io.Discard, res.Body)
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type errorMessage struct {
	Error string `json:"error"`
}

// CodeErrorDecoder is the default ErrorDecoder. It reads the response
// body, takes the message from an {"error": ...} envelope when present
// and classifies the failure by HTTP status.
type CodeErrorDecoder struct{}

func (CodeErrorDecoder) DecodeError(ctx context.Context, res *http.Response) error {
	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.FromHTTPStatus(res.StatusCode, "API returned HTTP status %s, failed to read body: %v", res.Status, err)
	}
	var msg errorMessage
	if err := json.Unmarshal(buf, &msg); err != nil || msg.Error == "" {
		return errors.FromHTTPStatus(res.StatusCode, "API returned HTTP status %s: %s", res.Status, string(buf))
	}
	return errors.FromHTTPStatus(res.StatusCode, "API returned error with HTTP status %s: %v", res.Status, msg.Error)
}

// HeaderSupplier provides extra headers for a build. It is called fresh
// on every build that has non-empty suppliers.
type HeaderSupplier func() map[string][]string

// RequestInterceptor mutates the request template immediately before
// dispatch. Interceptors run in registration order.
type RequestInterceptor func(template *RequestTemplate)

// mergeSuppliedHeaders flattens supplier outputs into one header map.
// Values of a key shared between suppliers are appended in supplier
// order, not overwritten.
func mergeSuppliedHeaders(suppliers []HeaderSupplier) map[string][]string {
	merged := make(map[string][]string)
	for _, supplier := range suppliers {
		for name, values := range supplier() {
			merged[name] = append(merged[name], values...)
		}
	}
	return merged
}

// headerInterceptor applies a merged header map in deterministic order.
func headerInterceptor(headers map[string][]string) RequestInterceptor {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return func(template *RequestTemplate) {
		for _, name := range names {
			template.Header(name, headers[name]...)
		}
	}
}
