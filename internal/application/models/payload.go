package models

import (
	"encoding/json"
	"fmt"
)

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
)

// Value is a closed scalar variant for applicant-supplied payload fields:
// string, number or bool. Anything else (null, arrays, objects) is rejected
// at decode time so the payload stays flat and round-trippable.
type Value struct {
	kind valueKind
	str  string
	num  float64
	b    bool
}

func StringValue(s string) Value  { return Value{kind: kindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: kindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: kindBool, b: b} }

func (v Value) String() (string, bool)  { return v.str, v.kind == kindString }
func (v Value) Number() (float64, bool) { return v.num, v.kind == kindNumber }
func (v Value) Bool() (bool, bool)      { return v.b, v.kind == kindBool }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.str)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("payload values must be string, number or bool, got %T", raw)
	}
	return nil
}

// Data is the applicant-supplied form payload.
type Data map[string]Value

func (d Data) String(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	return v.String()
}

func (d Data) Number(key string) (float64, bool) {
	v, ok := d[key]
	if !ok {
		return 0, false
	}
	return v.Number()
}

func (d Data) Bool(key string) (bool, bool) {
	v, ok := d[key]
	if !ok {
		return false, false
	}
	return v.Bool()
}

// Amount resolves the requested financing amount. The canonical field is
// requested_amount; approval_amount and amount are accepted read-only for
// records written by older clients.
func (d Data) Amount() (float64, bool) {
	for _, key := range []string{"requested_amount", "approval_amount", "amount"} {
		if n, ok := d.Number(key); ok {
			return n, true
		}
	}
	return 0, false
}
