// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package format

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Message applies printf-style substitution to args.
func Message(args ...any) string {
	if len(args) == 0 {
		return ""
	}

	var b strings.Builder
	next := 0
	if tmpl, ok := args[0].(string); ok && len(args) > 1 {
		next = 1
		for i := 0; i < len(tmpl); i++ {
			c := tmpl[i]
			if c != '%' || i+1 == len(tmpl) {
				b.WriteByte(c)
				continue
			}
			verb := tmpl[i+1]
			switch {
			case verb == '%':
				b.WriteByte('%')
				i++
			case strings.IndexByte("sdjo", verb) >= 0 && next < len(args):
				b.WriteString(render(verb, args[next]))
				next++
				i++
			default:
				b.WriteByte(c)
			}
		}
	}

	for _, arg := range args[next:] {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(stringify(arg))
	}
	return b.String()
}

func render(verb byte, arg any) string {
	switch verb {
	case 's':
		return stringify(arg)
	case 'd':
		return number(arg)
	case 'j':
		return toJSON(arg)
	case 'o':
		js := toJSON(arg)
		if js == "" || (js[0] != '{' && js[0] != '[') {
			js = "<" + js + ">"
		}
		return typeName(arg) + js
	}
	return ""
}

func stringify(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case nil:
		return "null"
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(arg)
}

// number converts arg the way a numeric coercion would: NaN when it has no
// numeric reading.
func number(arg any) string {
	switch v := arg.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case nil:
		return "0"
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "0"
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return formatFloat(f)
		}
	}
	return "NaN"
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toJSON encodes arg, falling back to its fmt form for values JSON cannot
// represent.
func toJSON(arg any) string {
	data, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprintf("%+v", arg)
	}
	return string(data)
}

func typeName(arg any) string {
	t := reflect.TypeOf(arg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	switch t.Kind() {
	case reflect.Map:
		return "Object"
	case reflect.Slice, reflect.Array:
		return "Array"
	}
	return t.Name()
}
