// Package binding 把 JSON 数据填入 MText 标记中的 ${path} 占位符。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ByLCY/mtext/markup"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将标记中的 ${path.to.value} 替换为 data 中的值。
// 值中的 \、{、} 会被转义，换行转换为段落分隔 \P，因此数据不会改变格式。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		val, ok := lookup(data, match)
		if !ok {
			return match
		}
		return encode(val)
	})
}

// Missing 返回在 data 中找不到的占位符路径，按出现顺序，不去重。
func Missing(text string, data any) []string {
	var out []string
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := lookup(data, groups[0]); !ok {
			out = append(out, strings.TrimSpace(groups[1]))
		}
	}
	return out
}

func lookup(data any, match string) (any, bool) {
	if data == nil {
		return nil, false
	}
	groups := exprPattern.FindStringSubmatch(match)
	if len(groups) < 2 {
		return nil, false
	}
	path := strings.TrimSpace(groups[1])
	if path == "" {
		return nil, false
	}
	return resolvePath(data, path)
}

// encode 把值格式化为可以安全嵌入标记的文本。
func encode(val any) string {
	var s string
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprint(v)
	}
	s = markup.EscapeText(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", `\P`)
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// parseSegment 拆分 "items[0][1]" 形式的路径段。
func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	c, ok := current.([]any)
	if !ok || idx < 0 || idx >= len(c) {
		return nil, false
	}
	return c[idx], true
}
