package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// OptionalTime distinguishes an absent JSON key from an explicit null.
// Set is true whenever the key appears in the payload.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// SomeTime 构造一个已设置的值，测试与内部调用使用
func SomeTime(t time.Time) OptionalTime {
	return OptionalTime{Set: true, Value: &t}
}

// NullTime 构造一个显式置空的值
func NullTime() OptionalTime {
	return OptionalTime{Set: true}
}

func (o OptionalTime) apply(dst **time.Time) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		*dst = nil
		return
	}
	v := *o.Value
	*dst = &v
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
