package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将排版结果输出为 JSON，便于调试或可视化。路径以 SVG path data 表示。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// MarshalJSON 附加路径的 SVG 数据与包围盒。
func (p Path) MarshalJSON() ([]byte, error) {
	type plain Path
	out := struct {
		plain
		D      string `json:"d,omitempty"`
		Bounds Box    `json:"bounds"`
	}{plain: plain(p), Bounds: p.Bounds()}
	if p.Path != nil {
		out.D = p.Path.ToSVG()
	}
	return json.Marshal(out)
}
