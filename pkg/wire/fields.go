package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Fields 是按字段名延迟解码的 JSON 对象。
type Fields map[string]json.RawMessage

// DecodeFields 将 raw 解码为 JSON 对象。
func DecodeFields(raw json.RawMessage) (Fields, error) {
	if isNull(raw) {
		return nil, errors.New("expected object, got null")
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("expected object: %w", err)
	}
	return f, nil
}

// Has 判断字段存在且不为 null。
func (f Fields) Has(key string) bool {
	raw, ok := f[key]
	return ok && !isNull(raw)
}

// RequiredString 读取必填字符串字段。
func (f Fields) RequiredString(key string) (string, error) {
	if !f.Has(key) {
		return "", fmt.Errorf("missing field %q", key)
	}
	var s string
	if err := json.Unmarshal(f[key], &s); err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

// OptionalString 读取可选字符串字段，缺失时返回空串。
func (f Fields) OptionalString(key string) (string, error) {
	if !f.Has(key) {
		return "", nil
	}
	return f.RequiredString(key)
}

// RequiredBool 读取必填布尔字段。
func (f Fields) RequiredBool(key string) (bool, error) {
	if !f.Has(key) {
		return false, fmt.Errorf("missing field %q", key)
	}
	var b bool
	if err := json.Unmarshal(f[key], &b); err != nil {
		return false, fmt.Errorf("field %q: %w", key, err)
	}
	return b, nil
}

// RequiredObject 读取必填对象字段。
func (f Fields) RequiredObject(key string) (Fields, error) {
	if !f.Has(key) {
		return nil, fmt.Errorf("missing field %q", key)
	}
	obj, err := DecodeFields(f[key])
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return obj, nil
}

// FlexString 读取字符串或整数字段，并统一为字符串。
func (f Fields) FlexString(key string) (string, error) {
	if !f.Has(key) {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, err := firstOf[string](f[key], decodeString, decodeIntegerString)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

type decoder[T any] func(json.RawMessage) (T, error)

// firstOf 依次尝试 decoders，返回第一个成功的结果。
func firstOf[T any](raw json.RawMessage, decoders ...decoder[T]) (T, error) {
	var zero T
	errs := make([]error, 0, len(decoders))
	for _, decode := range decoders {
		v, err := decode(raw)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	return zero, errors.Join(errs...)
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.New("not a string")
	}
	return s, nil
}

func decodeIntegerString(raw json.RawMessage) (string, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("not an integer")
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return "", fmt.Errorf("not an integer: %s", n)
	}
	return strconv.FormatInt(v, 10), nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
