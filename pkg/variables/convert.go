package variables

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

func toString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	}
}

func toFloat(v any) (float64, bool) {
	switch typed := v.(type) {
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	case string:
		f, err := strconv.ParseFloat(typed, 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch typed := v.(type) {
	case time.Time:
		return typed, true
	case int64:
		return time.Unix(typed, 0), true
	case float64:
		return time.Unix(int64(typed), 0), true
	case string:
		if t, err := time.Parse(time.RFC3339, typed); err == nil {
			return t, true
		}

		if unix, err := strconv.ParseInt(typed, 10, 64); err == nil {
			return time.Unix(unix, 0), true
		}

		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
