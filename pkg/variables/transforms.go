package variables

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// transformFunc mutates a resolved value. Transforms are pure; a
// transform that cannot apply to its input passes the value through.
type transformFunc func(value any, args []string) any

var transforms = map[string]transformFunc{
	"uppercase": func(v any, _ []string) any { return strings.ToUpper(toString(v)) },
	"lowercase": func(v any, _ []string) any { return strings.ToLower(toString(v)) },
	"trim":      func(v any, _ []string) any { return strings.TrimSpace(toString(v)) },
	"truncate":  truncateTransform,
	"split":     splitTransform,
	"replace":   replaceTransform,
	"regex":     regexTransform,
	"round":     numeric(math.Round),
	"floor":     numeric(math.Floor),
	"ceil":      numeric(math.Ceil),
	"pad":       padTransform,
	"currency":  currencyTransform,
	"date":      dateTransform,
	"urlencode": func(v any, _ []string) any { return url.QueryEscape(toString(v)) },
	"base64":    func(v any, _ []string) any { return base64.StdEncoding.EncodeToString([]byte(toString(v))) },
	"stringify": stringifyTransform,
	"jsonparse": jsonParseTransform,
}

func truncateTransform(v any, args []string) any {
	str := toString(v)
	if len(args) == 0 {
		return str
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n >= len(str) {
		return str
	}

	return str[:n]
}

func splitTransform(v any, args []string) any {
	sep := ","
	if len(args) > 0 {
		sep = args[0]
	}

	parts := strings.Split(toString(v), sep)
	items := make([]any, len(parts))
	for i, part := range parts {
		items[i] = part
	}

	return items
}

func replaceTransform(v any, args []string) any {
	if len(args) < 2 {
		return v
	}

	return strings.ReplaceAll(toString(v), args[0], args[1])
}

func regexTransform(v any, args []string) any {
	if len(args) < 2 {
		return v
	}

	pattern, err := regexp.Compile(args[0])
	if err != nil {
		return v
	}

	return pattern.ReplaceAllString(toString(v), args[1])
}

func numeric(fn func(float64) float64) transformFunc {
	return func(v any, _ []string) any {
		f, ok := toFloat(v)
		if !ok {
			return v
		}

		return fn(f)
	}
}

func padTransform(v any, args []string) any {
	str := toString(v)
	if len(args) == 0 {
		return str
	}

	width, err := strconv.Atoi(args[0])
	if err != nil {
		return str
	}

	ch := "0"
	if len(args) > 1 && args[1] != "" {
		ch = args[1][:1]
	}

	for len(str) < width {
		str = ch + str
	}

	return str
}

func currencyTransform(v any, _ []string) any {
	f, ok := toFloat(v)
	if !ok {
		return v
	}

	return fmt.Sprintf("%.2f", f)
}

func dateTransform(v any, args []string) any {
	t, ok := toTime(v)
	if !ok {
		return v
	}

	layout := "2006-01-02"
	if len(args) > 0 {
		layout = args[0]
	}

	return t.UTC().Format(layout)
}

func stringifyTransform(v any, _ []string) any {
	data, err := json.Marshal(v)
	if err != nil {
		return toString(v)
	}

	return string(data)
}

func jsonParseTransform(v any, _ []string) any {
	var parsed any
	if err := json.Unmarshal([]byte(toString(v)), &parsed); err != nil {
		return v
	}

	return parsed
}
