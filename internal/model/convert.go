package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Values reach this package from three decoders: encoding/json (float64,
// json.Number), the MySQL driver (int64, []byte, time.Time) and bson
// (int32, int64, float64). The helpers below fold them into Go scalars.

// ToInt64 converts a decoded value to int64. ok is false for nil or non-numeric values.
func ToInt64(v interface{}) (int64, bool) {
	switch i := v.(type) {
	case int64:
		return i, true
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int16:
		return int64(i), true
	case int8:
		return int64(i), true
	case uint:
		return int64(i), true
	case uint64:
		return int64(i), true
	case uint32:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint8:
		return int64(i), true
	case float64:
		return int64(i), true
	case float32:
		return int64(i), true
	case json.Number:
		n, err := i.Int64()
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(i), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(i), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ToString converts a decoded value to string. nil becomes "".
func ToString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format("2006-01-02")
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// ToBool converts a decoded value to bool. MySQL TINYINT(1) arrives as int64.
func ToBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	case []byte:
		parsed, _ := strconv.ParseBool(string(b))
		return parsed
	default:
		n, ok := ToInt64(v)
		return ok && n != 0
	}
}

// OptionalInt64 returns a pointer to the converted value, or nil when absent.
func OptionalInt64(v interface{}) *int64 {
	n, ok := ToInt64(v)
	if !ok {
		return nil
	}
	return &n
}
