package fonts

import (
	"embed"
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

//go:embed cxf/*.cxf
var strokeFS embed.FS

// StandardStroke 是内置笔画字体的名称，也是笔画字体的默认回退字体。
const StandardStroke = "standard"

// FallbackOutline 是内置轮廓字体（Go 字体）的族名。
const FallbackOutline = "Go"

// Load 返回内置笔画字体的字节数据，path 可写为 "embed:standard.cxf" 或 "standard"。
func Load(path string) ([]byte, error) {
	name := strings.TrimPrefix(path, "embed:")
	name = strings.TrimPrefix(name, "cxf/")
	if !strings.HasSuffix(name, ".cxf") {
		name += ".cxf"
	}
	target := "cxf/" + name
	data, err := strokeFS.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("读取内置字体 %s 失败: %w", target, err)
	}
	return data, nil
}

// StrokeNames 列出内置笔画字体的名称（不含扩展名）。
func StrokeNames() []string {
	entries, err := strokeFS.ReadDir("cxf")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".cxf"))
	}
	return names
}

// Outline 返回内置 TTF 轮廓字体的字节数据。
func Outline(bold, italic bool) []byte {
	switch {
	case bold && italic:
		return gobolditalic.TTF
	case bold:
		return gobold.TTF
	case italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}
