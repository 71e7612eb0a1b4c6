package rpc

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/stellar/go/support/errors"
)

type CodecErrorKind int

const (
	// CodecInvalid means the request could not be serialized.
	CodecInvalid CodecErrorKind = iota
	// CodecMalformed means the response bytes are not a JSON-RPC envelope.
	CodecMalformed
	// CodecShapeMismatch means the result does not fit the expected type.
	CodecShapeMismatch
)

func (k CodecErrorKind) String() string {
	switch k {
	case CodecInvalid:
		return "invalid"
	case CodecMalformed:
		return "malformed"
	case CodecShapeMismatch:
		return "shape mismatch"
	}
	return fmt.Sprintf("codec(%d)", int(k))
}

// CodecError is returned by Encode, Decode and DecodeResult.
type CodecError struct {
	Kind CodecErrorKind
	// Field is the dotted path of a missing required field, if any.
	Field string
	Err   error
}

func (e *CodecError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("codec %s: missing field %q", e.Kind, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("codec %s: %v", e.Kind, e.Err)
	}
	return "codec " + e.Kind.String()
}

func (e *CodecError) Unwrap() error { return e.Err }

var null = json.RawMessage("null")

// Encode builds a request envelope for method and serializes it. It returns
// the envelope bytes and the id the response must carry.
func Encode(method string, params any) ([]byte, string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, "", &CodecError{Kind: CodecInvalid, Err: errors.Wrap(err, "generating request id")}
	}
	b, err := json.Marshal(Request{
		Version: Version,
		ID:      id.String(),
		Method:  method,
		Params:  normalizeParams(params),
	})
	if err != nil {
		return nil, "", &CodecError{Kind: CodecInvalid, Err: errors.Wrapf(err, "encoding params for %s", method)}
	}
	return b, id.String(), nil
}

func normalizeParams(params any) any {
	if params == nil {
		return NoParams{}
	}
	if raw, ok := params.(json.RawMessage); ok && (len(raw) == 0 || isNull(raw)) {
		return NoParams{}
	}
	if v := reflect.ValueOf(params); v.Kind() == reflect.Slice && v.IsNil() {
		return NoParams{}
	}
	return params
}

// Decode parses a response envelope. The envelope must carry exactly one of
// a result (which may be null) or a non-null error.
func Decode(b []byte) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, &CodecError{Kind: CodecMalformed, Err: err}
	}
	if fields == nil {
		return nil, &CodecError{Kind: CodecMalformed, Err: errors.New("envelope is null")}
	}

	resp := &Response{ID: fields["id"]}
	if v, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(v, &resp.Version); err != nil {
			return nil, &CodecError{Kind: CodecMalformed, Err: errors.Wrap(err, "jsonrpc field")}
		}
	}

	result, hasResult := fields["result"]
	rawErr, hasError := fields["error"]
	hasError = hasError && !isNull(rawErr)

	switch {
	case hasError && hasResult && !isNull(result):
		return nil, &CodecError{Kind: CodecMalformed, Err: errors.New("envelope carries both result and error")}
	case hasError:
		var se ServerError
		if err := json.Unmarshal(rawErr, &se); err != nil {
			return nil, &CodecError{Kind: CodecMalformed, Err: errors.Wrap(err, "error object")}
		}
		resp.Error = &se
	case hasResult:
		resp.Result = result
	default:
		return nil, &CodecError{Kind: CodecMalformed, Err: errors.New("envelope carries neither result nor error")}
	}
	return resp, nil
}

// DecodeResult decodes a result value into T. A value that does not fit T,
// or lacks a required field of T, yields a CodecShapeMismatch error and the
// zero T.
//
// A field is required unless it is tagged omitempty or its type is a
// pointer, slice, map or interface. Elements of slices, arrays and maps are
// checked too; the reported path reads like "chunks[0].shard_id".
func DecodeResult[T any](raw json.RawMessage) (T, error) {
	var out, zero T
	if len(raw) == 0 {
		raw = null
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, &CodecError{Kind: CodecShapeMismatch, Err: err}
	}
	if field := missingField(reflect.TypeFor[T](), raw); field != "" {
		return zero, &CodecError{Kind: CodecShapeMismatch, Field: field}
	}
	return out, nil
}

var (
	jsonUnmarshaler = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func customDecoder(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonUnmarshaler) || pt.Implements(textUnmarshaler)
}

func missingField(t reflect.Type, raw json.RawMessage) string {
	for t.Kind() == reflect.Pointer {
		if isNull(raw) {
			return ""
		}
		t = t.Elem()
	}
	if customDecoder(t) {
		return ""
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte is a base64 string
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return ""
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return ""
		}
		for i, item := range items {
			if missing := missingField(t.Elem(), item); missing != "" {
				return joinPath(fmt.Sprintf("[%d]", i), missing)
			}
		}
	case reflect.Map:
		var items map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return ""
		}
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if missing := missingField(t.Elem(), items[k]); missing != "" {
				return joinPath(fmt.Sprintf("[%q]", k), missing)
			}
		}
	case reflect.Struct:
		return missingStructField(t, raw)
	}
	return ""
}

func missingStructField(t reflect.Type, raw json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() && !f.Anonymous {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		// embedded structs without a name are flattened into the parent object
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			if missing := missingStructField(f.Type, raw); missing != "" {
				return missing
			}
			continue
		}
		if name == "" {
			name = f.Name
		}
		v, ok := lookup(obj, name)
		if !ok {
			if optional(f.Type, opts) {
				continue
			}
			return name
		}
		if missing := missingField(f.Type, v); missing != "" {
			return joinPath(name, missing)
		}
	}
	return ""
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "[") {
		return parent + child
	}
	return parent + "." + child
}

func optional(t reflect.Type, opts string) bool {
	for _, o := range strings.Split(opts, ",") {
		if o == "omitempty" || o == "omitzero" {
			return true
		}
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// lookup matches keys the way encoding/json does: exact first, then
// case-insensitively.
func lookup(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), null)
}
