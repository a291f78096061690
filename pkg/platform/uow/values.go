package uow

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are the textual forms SQLite and PostgreSQL hand back for
// timestamp defaults.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// fieldValue returns the snapshot value of a struct field. Pointer fields are
// dereferenced so snapshots compare by value; a nil pointer becomes nil.
func fieldValue(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// setField writes a database value into a struct field, converting between
// the driver's representation and the field's type.
func setField(field reflect.Value, value any) error {
	if !field.CanSet() {
		return fmt.Errorf("field of type %v is not settable", field.Type())
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	target := field.Type()
	isPtr := target.Kind() == reflect.Pointer
	if isPtr {
		target = target.Elem()
	}

	converted, err := convert(target, value)
	if err != nil {
		return err
	}
	if isPtr {
		ptr := reflect.New(target)
		ptr.Elem().Set(converted)
		field.Set(ptr)
		return nil
	}
	field.Set(converted)
	return nil
}

func convert(target reflect.Type, value any) (reflect.Value, error) {
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	src := reflect.ValueOf(value)

	if target == timeType {
		switch v := value.(type) {
		case time.Time:
			return reflect.ValueOf(v), nil
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					return reflect.ValueOf(t), nil
				}
			}
			return reflect.Value{}, fmt.Errorf("cannot parse %q as time", v)
		case int64:
			return reflect.ValueOf(time.Unix(v, 0).UTC()), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert %T to time.Time", value)
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return src.Convert(target), nil
		case reflect.String:
			n, err := strconv.ParseInt(strings.TrimSpace(src.String()), 10, 64)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(target), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return src.Convert(target), nil
		case reflect.String:
			n, err := strconv.ParseUint(strings.TrimSpace(src.String()), 10, 64)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(target), nil
		}
	case reflect.Float32, reflect.Float64:
		switch src.Kind() {
		case reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64:
			return src.Convert(target), nil
		case reflect.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(src.String()), 64)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(f).Convert(target), nil
		}
	case reflect.Bool:
		switch src.Kind() {
		case reflect.Bool:
			return src.Convert(target), nil
		case reflect.Int64:
			return reflect.ValueOf(src.Int() != 0).Convert(target), nil
		}
	case reflect.String:
		if src.Kind() == reflect.String {
			return src.Convert(target), nil
		}
	}

	if src.Type().AssignableTo(target) {
		return src, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %v", value, target)
}

// Equal reports whether two snapshot values are the same. Times compare by
// instant so a location change alone is not a modification.
func Equal(a, b any) bool {
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok && bok {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
