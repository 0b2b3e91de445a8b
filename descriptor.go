package feign

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
)

// Expander turns one positional argument into the string form used for
// placeholder substitution.
type Expander func(value interface{}) string

// expandValue is the default expansion: encoding.TextMarshaler if the
// value implements it, fmt otherwise.
func expandValue(value interface{}) string {
	if marshaler, ok := value.(encoding.TextMarshaler); ok {
		if text, err := marshaler.MarshalText(); err == nil {
			return string(text)
		}
	}
	return fmt.Sprintf("%v", value)
}

// MethodDescriptor is the immutable per-method metadata describing how to
// turn a positional argument list into a request. Descriptors are created
// once per interface and must not be modified afterwards.
type MethodDescriptor struct {
	// Key is the configuration key, unique within the owning interface.
	// See ConfigKey for the conventional format.
	Key string

	// Template is the unresolved request skeleton.
	Template *RequestTemplate

	// ArgNames maps an argument index to the placeholder names it fills.
	// The same value may populate multiple names.
	ArgNames map[int][]string

	// URLIndex, if set, is the index of a raw URL prefix argument. The
	// argument is required to be non-nil at call time.
	URLIndex *int

	// BodyIndex, if set, is the index of the body argument, encoded whole
	// against BodyType. Required non-nil at call time.
	BodyIndex *int
	BodyType  reflect.Type

	// Expanders transform the raw argument at an index before placeholder
	// insertion.
	Expanders map[int]Expander

	// FormParams lists the placeholder names whose values are sent as a
	// form-encoded body. Mutually exclusive with BodyIndex.
	FormParams []string
}

// Index is a helper for the optional index fields.
func Index(i int) *int {
	return &i
}

// validate panics on malformed descriptors. These are programmer errors
// fixed at development time, not runtime conditions.
func (md *MethodDescriptor) validate() {
	if md.Key == "" {
		panic("method descriptor without a config key")
	}
	if md.Template == nil {
		panic(fmt.Sprintf("method %s has no request template", md.Key))
	}
	if md.BodyIndex != nil && len(md.FormParams) > 0 {
		panic(fmt.Sprintf("method %s declares both a body argument and form params, want at most one", md.Key))
	}
	if md.BodyIndex != nil && md.BodyType == nil {
		panic(fmt.Sprintf("method %s declares a body argument without a body type", md.Key))
	}
}

// ConfigKey formats the conventional configuration key for a method:
// Service#method(ParamA,ParamB). Note that there is no whitespace in
// a key.
func ConfigKey(service, method string, params ...string) string {
	return fmt.Sprintf("%s#%s(%s)", service, method, strings.Join(params, ","))
}

// Contract produces the method descriptors of a target's declared
// interface. Parse must be deterministic and cover every callable method.
type Contract interface {
	Parse(target Target) ([]*MethodDescriptor, error)
}

// StaticContract is a registration-table contract: the descriptors are
// listed explicitly and returned for any target.
type StaticContract struct {
	descriptors []*MethodDescriptor
}

// NewStaticContract registers descriptors. It panics on duplicate config
// keys and on malformed descriptors.
func NewStaticContract(descriptors ...*MethodDescriptor) *StaticContract {
	seen := make(map[string]struct{}, len(descriptors))
	for _, md := range descriptors {
		md.validate()
		if _, has := seen[md.Key]; has {
			panic(fmt.Sprintf("already has a method with config key %s", md.Key))
		}
		seen[md.Key] = struct{}{}
	}
	return &StaticContract{descriptors: descriptors}
}

func (c *StaticContract) Parse(target Target) ([]*MethodDescriptor, error) {
	return c.descriptors, nil
}
