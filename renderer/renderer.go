package renderer

import (
	"errors"

	"github.com/ByLCY/mtext/layout"
)

// ErrEmptyResult 表示排版结果为空，没有可以输出的路径。
var ErrEmptyResult = errors.New("renderer: 排版结果为空")

// Renderer 将排版结果输出为最终文件，例如 PDF 或 SVG。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
