package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// fieldMap renders business fields as their JSON object form.
func fieldMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: encode fields: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("lifecycle: fields are not an object: %w", err)
	}
	return out, nil
}

// fromFieldMap decodes a JSON object form back into T.
func fromFieldMap[T any](m map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(m)
	if err != nil {
		return out, fmt.Errorf("lifecycle: encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return out, shared.NewValidationError(typeErr.Field, "has the wrong type")
		}
		return out, shared.Invalidf("%v", err)
	}
	return out, nil
}

// normalize passes v through JSON so values compare the way they are stored.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, shared.Invalidf("value is not representable: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sameValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// clone deep-copies a value through its JSON form.
func clone[T any](v T) T {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func cloneRecord[T Entity](r Record[T]) Record[T] {
	out := r
	out.Fields = clone(r.Fields)
	out.History = append([]ChangeRecord(nil), r.History...)
	if r.HiddenAt != nil {
		t := *r.HiddenAt
		out.HiddenAt = &t
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

func cloneArchive[T Entity](a ArchiveRecord[T]) ArchiveRecord[T] {
	out := a
	out.Fields = clone(a.Fields)
	out.History = append([]ChangeRecord(nil), a.History...)
	return out
}
