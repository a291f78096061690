package uow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/jinzhu/inflection"
)

// ErrInvalidEntity is returned for values that cannot be mapped to a table.
var ErrInvalidEntity = errors.New("uow: invalid entity")

// TableNamer provides a custom table name for an entity.
type TableNamer interface {
	TableName() string
}

// Kinder provides a custom entity kind used in audit records.
type Kinder interface {
	EntityKind() string
}

type fieldMeta struct {
	index     []int
	column    string
	name      string
	key       bool
	generated bool
}

type typeMeta struct {
	kind   string
	table  string
	fields []fieldMeta
}

var typeCache sync.Map // reflect.Type -> *typeMeta

var (
	tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()
	kinderType     = reflect.TypeOf((*Kinder)(nil)).Elem()
)

// structValue dereferences entity down to its struct value.
func structValue(entity any) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil entity", ErrInvalidEntity)
	}
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil pointer %T", ErrInvalidEntity, entity)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %T is not a struct", ErrInvalidEntity, entity)
	}
	return v, nil
}

func metaFor(t reflect.Type) (*typeMeta, error) {
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMeta), nil
	}
	if t.Name() == "" {
		return nil, fmt.Errorf("%w: anonymous struct %v", ErrInvalidEntity, t)
	}

	m := &typeMeta{kind: t.Name()}
	if reflect.PointerTo(t).Implements(kinderType) {
		if k, ok := reflect.New(t).Interface().(Kinder); ok {
			if kind := strings.TrimSpace(k.EntityKind()); kind != "" {
				m.kind = kind
			}
		}
	}
	m.table = inflection.Plural(toSnakeCase(t.Name()))
	if reflect.PointerTo(t).Implements(tableNamerType) {
		if n, ok := reflect.New(t).Interface().(TableNamer); ok {
			if name := strings.TrimSpace(n.TableName()); name != "" {
				m.table = name
			}
		}
	}

	hasKey := false
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("db")
		if !ok || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		column := strings.TrimSpace(parts[0])
		if column == "" {
			column = toSnakeCase(sf.Name)
		}
		f := fieldMeta{index: sf.Index, column: column, name: toPascalCase(column)}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "key":
				f.key = true
			case "generated":
				f.generated = true
			}
		}
		hasKey = hasKey || f.key
		m.fields = append(m.fields, f)
	}
	if !hasKey {
		return nil, fmt.Errorf("%w: %s has no key column", ErrInvalidEntity, t.Name())
	}

	actual, _ := typeCache.LoadOrStore(t, m)
	return actual.(*typeMeta), nil
}

// toSnakeCase converts an exported Go identifier to snake_case.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// toPascalCase converts a snake_case column to the property name used in
// audit payloads, e.g. "tax_id" -> "TaxId".
func toPascalCase(column string) string {
	var b strings.Builder
	for _, part := range strings.Split(column, "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// quoteIdent renders a SQL identifier; both SQLite and PostgreSQL accept
// double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
