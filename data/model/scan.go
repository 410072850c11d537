package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 结构体元信息与扫描工具
// ------------------------------------------------------------------------

type fieldInfo struct {
	Column string
	Index  []int
}

type structMeta struct {
	typ          reflect.Type
	columnToInfo map[string]fieldInfo
}

var structCache sync.Map // reflect.Type -> *structMeta

func structMetaFor(t reflect.Type) *structMeta {
	if sm, ok := structCache.Load(t); ok {
		return sm.(*structMeta)
	}
	sm, _ := structCache.LoadOrStore(t, buildStructMeta(t))
	return sm.(*structMeta)
}

func buildStructMeta(t reflect.Type) *structMeta {
	sm := &structMeta{
		typ:          t,
		columnToInfo: make(map[string]fieldInfo),
	}

	var walk func(reflect.Type, []int)
	walk = func(cur reflect.Type, prefix []int) {
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			if f.PkgPath != "" {
				continue
			}

			index := append(append([]int(nil), prefix...), i)

			if f.Anonymous && f.Type.Kind() == reflect.Struct && !isTimeType(f.Type) {
				walk(f.Type, index)
				continue
			}
			if !isScalarDBField(f.Type) {
				continue
			}

			col := parseColumnTag(f)
			if col == "-" {
				continue
			}
			if col == "" {
				col = toSnakeCase(f.Name)
			}
			// 后来的同名列覆盖之前的定义（以最内层为准）
			sm.columnToInfo[col] = fieldInfo{Column: col, Index: index}
		}
	}

	walk(t, nil)
	return sm
}

func isScalarDBField(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isTimeType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func isTimeType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}

func parseColumnTag(f reflect.StructField) string {
	if dbTag := f.Tag.Get("db"); dbTag != "" {
		return strings.Split(dbTag, ",")[0]
	}
	if jsonTag := f.Tag.Get("json"); jsonTag != "" {
		return strings.Split(jsonTag, ",")[0]
	}
	return ""
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanRow 将一行列值写入 dest，dest 必须是非 nil 的结构体指针。
// 没有对应字段的列被忽略。
func scanRow(values Row, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("model.Scan: dest must be non-nil pointer")
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("model.Scan: unsupported dest element kind %s", elem.Kind())
	}

	sm := structMetaFor(elem.Type())
	for col, val := range values {
		fi, ok := sm.columnToInfo[col]
		if !ok {
			continue
		}
		fv := fieldByIndexSafe(elem, fi.Index)
		if !fv.IsValid() || !fv.CanSet() {
			continue
		}
		if err := assignValue(fv, val); err != nil {
			return fmt.Errorf("model.Scan: column %s: %w", col, err)
		}
	}
	return nil
}

// fieldByIndexSafe 按索引访问字段，途经的 nil 指针会被分配
func fieldByIndexSafe(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func assignValue(field reflect.Value, val any) error {
	if val == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(field.Type().Elem())
		if err := assignValue(ptr.Elem(), val); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	if b, ok := val.([]byte); ok {
		val = string(b)
	}
	src := reflect.ValueOf(val)

	if isTimeType(field.Type()) {
		switch t := val.(type) {
		case time.Time:
			field.Set(reflect.ValueOf(t))
			return nil
		case string:
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					field.Set(reflect.ValueOf(parsed))
					return nil
				}
			}
			return fmt.Errorf("cannot parse %q as time", t)
		}
		return fmt.Errorf("cannot assign %T to time.Time", val)
	}

	switch field.Kind() {
	case reflect.Bool:
		switch v := val.(type) {
		case bool:
			field.SetBool(v)
			return nil
		case int64:
			field.SetBool(v != 0)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetInt(src.Int())
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			field.SetInt(int64(src.Uint()))
			return nil
		case reflect.Float32, reflect.Float64:
			field.SetInt(int64(src.Float()))
			return nil
		case reflect.String:
			n, err := strconv.ParseInt(src.String(), 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetUint(uint64(src.Int()))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			field.SetUint(src.Uint())
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch src.Kind() {
		case reflect.Float32, reflect.Float64:
			field.SetFloat(src.Float())
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetFloat(float64(src.Int()))
			return nil
		case reflect.String:
			f, err := strconv.ParseFloat(src.String(), 64)
			if err != nil {
				return err
			}
			field.SetFloat(f)
			return nil
		}
	case reflect.String:
		if s, ok := val.(string); ok {
			field.SetString(s)
			return nil
		}
		field.SetString(fmt.Sprint(val))
		return nil
	}

	if src.Type().AssignableTo(field.Type()) {
		field.Set(src)
		return nil
	}
	if src.Type().ConvertibleTo(field.Type()) {
		field.Set(src.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", val, field.Type())
}
