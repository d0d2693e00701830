package proposal

import (
	"encoding/json"
	"extension-portal/internal/global/response"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// 结构性字段只能通过 Create*/Remove*/MarkSaved 修改
var structuralFields = map[string]bool{
	"id":         true,
	"projects":   true,
	"activities": true,
	"saved":      true,
	"status":     true,
}

// UpdateField 按 json 路径更新单个字段，例如
// "rationale"、"expected_output.patents"、"budget.meals"、"workplan.0.quarters.3"。
// 复合类型的值会被深拷贝，实体之间不会共享底层数据
func UpdateField(entity any, path string, value any) error {
	switch entity.(type) {
	case *Program, *Project, *Activity:
	default:
		return response.ErrValidation.WithTips(fmt.Sprintf("不支持的实体类型 %T", entity))
	}
	v := reflect.ValueOf(entity)
	if v.IsNil() {
		return response.ErrValidation.WithTips("实体为空")
	}
	if path == "" {
		return response.ErrValidation.WithTips("字段路径为空")
	}

	target := v.Elem()
	for i, seg := range strings.Split(path, ".") {
		next, err := step(target, seg, i == 0)
		if err != nil {
			return response.ErrValidation.WithTips(fmt.Sprintf("字段 %s: %v", path, err))
		}
		target = next
	}
	if err := assign(target, value); err != nil {
		return response.ErrValidation.WithTips(fmt.Sprintf("字段 %s: %v", path, err))
	}
	return nil
}

func step(v reflect.Value, seg string, top bool) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
			if name == "" || name == "-" || name != seg {
				continue
			}
			if top && structuralFields[name] {
				return reflect.Value{}, fmt.Errorf("不能直接修改")
			}
			return v.Field(i), nil
		}
		return reflect.Value{}, fmt.Errorf("未知字段 %q", seg)
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(seg)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("下标 %q 不是整数", seg)
		}
		if idx < 0 || idx >= v.Len() {
			return reflect.Value{}, fmt.Errorf("下标 %d 越界", idx)
		}
		return v.Index(idx), nil
	}
	return reflect.Value{}, fmt.Errorf("%q 之下没有子字段", seg)
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(value)

	if isScalar(dst.Kind()) {
		switch {
		case src.Type().AssignableTo(dst.Type()):
			dst.Set(src)
		case src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind():
			dst.Set(src.Convert(dst.Type()))
		case isNumber(src.Kind()) && isNumber(dst.Kind()):
			if isInteger(dst.Kind()) && src.CanFloat() && src.Float() != math.Trunc(src.Float()) {
				return fmt.Errorf("需要整数，得到 %v", value)
			}
			dst.Set(src.Convert(dst.Type()))
		default:
			return fmt.Errorf("类型不匹配：需要 %s，得到 %T", dst.Type(), value)
		}
		return nil
	}

	// 复合类型经 JSON 复制，调用方之后再改 value 不会影响实体
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fresh := reflect.New(dst.Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return fmt.Errorf("类型不匹配：需要 %s，得到 %T", dst.Type(), value)
	}
	dst.Set(fresh.Elem())
	return nil
}

func isScalar(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Bool || isNumber(k)
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
