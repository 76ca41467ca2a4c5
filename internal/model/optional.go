package model

import (
	"bytes"
	"encoding/json"
)

// Optional はJSONの「フィールド省略」と「null」を区別する部分更新用の値。
//
//   - 省略: Set == false（変更しない）
//   - null: Set == true, Null == true（値を消す）
//   - 値あり: Set == true, Null == false
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some は値ありのOptionalを返す。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null はnull指定のOptionalを返す。
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON はフィールドが存在する場合にのみ呼ばれるため、Setを立てる。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr は値ありならそのポインタを、省略・nullならnilを返す。
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
