package feign

import (
	"sort"

	"github.com/chadjaros/feign/errors"
)

// templateFactory resolves a descriptor plus a positional argument array
// into a finished request template. The body strategy (none, form
// encoded, explicit body) is decided once at construction from the
// descriptor, not per call.
type templateFactory struct {
	md *MethodDescriptor

	// encodeBody is nil for plain resolution.
	encodeBody func(args []interface{}, vars map[string]string, template *RequestTemplate) error
}

func newTemplateFactory(md *MethodDescriptor, encoder Encoder) *templateFactory {
	f := &templateFactory{md: md}
	switch {
	case len(md.FormParams) > 0 && md.BodyIndex == nil:
		f.encodeBody = func(args []interface{}, vars map[string]string, template *RequestTemplate) error {
			fields := make(map[string]string, len(md.FormParams))
			for _, name := range md.FormParams {
				if value, has := vars[name]; has {
					fields[name] = value
				}
			}
			return wrapEncodeError(encoder.Encode(fields, formMapType, template))
		}
	case md.BodyIndex != nil:
		f.encodeBody = func(args []interface{}, vars map[string]string, template *RequestTemplate) error {
			body := args[*md.BodyIndex]
			if body == nil {
				return errors.Precondition("body parameter %d of %s was nil", *md.BodyIndex, md.Key)
			}
			return wrapEncodeError(encoder.Encode(body, md.BodyType, template))
		}
	}
	return f
}

// wrapEncodeError classifies an encoder failure, preserving the original
// cause unless the encoder already signalled that kind.
func wrapEncodeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) == errors.KindEncode {
		return err
	}
	return errors.Encode(err)
}

// Create builds the resolved template for one call. Arguments are
// positional, aligned with the descriptor's indices.
func (f *templateFactory) Create(args []interface{}) (*RequestTemplate, error) {
	md := f.md
	template := md.Template.Clone()

	if md.URLIndex != nil {
		i := *md.URLIndex
		if i >= len(args) || args[i] == nil {
			return nil, errors.Precondition("URL parameter %d of %s was nil", i, md.Key)
		}
		template.Prefix(expandValue(args[i]))
	}

	vars := make(map[string]string, len(md.ArgNames))
	for _, i := range sortedIndices(md.ArgNames) {
		if i >= len(args) {
			continue
		}
		value := args[i]
		if value == nil {
			// Nil values are skipped: the placeholder stays absent.
			continue
		}
		expander := md.Expanders[i]
		var s string
		if expander != nil {
			s = expander(value)
		} else {
			s = expandValue(value)
		}
		for _, name := range md.ArgNames[i] {
			vars[name] = s
		}
	}

	if f.encodeBody != nil {
		if err := f.encodeBody(args, vars, template); err != nil {
			return nil, err
		}
	}

	// The full map resolves placeholders even when a filtered subset went
	// into the body.
	return template.Resolve(vars), nil
}

func sortedIndices(argNames map[int][]string) []int {
	indices := make([]int, 0, len(argNames))
	for i := range argNames {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
