package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/mtext/binding"
	"github.com/ByLCY/mtext/cxf"
	"github.com/ByLCY/mtext/layout"
	canvasrenderer "github.com/ByLCY/mtext/renderer/canvas"
)

// config 汇总命令行参数。
type config struct {
	input       string
	output      string
	format      string
	debug       string
	rich        bool
	draft       bool
	systemFonts bool
	boxes       bool
	margin      string
	cxfDirs     string
	data        any
}

func main() {
	var cfg config
	flag.StringVar(&cfg.input, "in", "examples/demo.json", "文本对象 JSON 文件路径")
	flag.StringVar(&cfg.output, "out", "output/demo.pdf", "输出路径（PDF、SVG 或富文本）")
	flag.StringVar(&cfg.format, "format", "", "输出格式 pdf|svg，默认按输出文件扩展名")
	flag.StringVar(&cfg.debug, "debug", "", "排版调试 JSON 输出路径")
	flag.BoolVar(&cfg.rich, "rich", false, "输出 HTML 富文本片段而不是图形")
	flag.BoolVar(&cfg.draft, "draft", false, "草图模式：笔画字体圆弧使用更少线段")
	flag.BoolVar(&cfg.systemFonts, "system-fonts", true, "在系统字体目录中查找轮廓字体")
	flag.BoolVar(&cfg.boxes, "boxes", false, "绘制每行的包围盒")
	flag.StringVar(&cfg.margin, "margin", "2mm", "页面留白，例如 2mm、5pt")
	flag.StringVar(&cfg.cxfDirs, "cxf-dir", "", "额外的 CXF 字体目录，多个目录用逗号分隔")
	dataJSON := flag.String("data", "", "绑定到 ${path} 占位符的 JSON 数据")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	if *verbose {
		layout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &cfg.data); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	if err := run(cfg); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成：%s\n", cfg.output)
}

// run 串联读取、数据绑定、排版与渲染。
func run(cfg config) error {
	doc, err := readDocument(cfg.input)
	if err != nil {
		return err
	}
	if cfg.data != nil {
		for _, path := range binding.Missing(doc.Text, cfg.data) {
			layout.Logger().Warn("数据中缺少字段", "path", path)
		}
		doc.Text = binding.Interpolate(doc.Text, cfg.data)
	}

	margin, err := layout.ParseLength(cfg.margin)
	if err != nil {
		return fmt.Errorf("解析留白失败: %w", err)
	}
	formatName := cfg.format
	if formatName == "" {
		formatName = strings.TrimPrefix(filepath.Ext(cfg.output), ".")
	}
	format, err := canvasrenderer.ParseFormat(formatName)
	if err != nil && !cfg.rich {
		return err
	}

	reg, err := cxf.NewRegistry(cxf.RegistryOptions{Dirs: splitList(cfg.cxfDirs)})
	if err != nil {
		return fmt.Errorf("载入笔画字体失败: %w", err)
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		SystemFonts: cfg.systemFonts,
		Format:      format,
		Margin:      margin,
		ShowBoxes:   cfg.boxes,
	})

	opts := layout.BuildOptions{
		Outline: r.Backend(),
		Stroke:  cxf.NewBackend(reg),
		Draft:   cfg.draft,
	}
	if cfg.rich {
		opts.Target = layout.TargetRichText
	}
	result, err := layout.Build(doc, opts)
	if err != nil {
		return fmt.Errorf("排版失败: %w", err)
	}

	if cfg.debug != "" {
		if err := writeDebug(result, cfg.debug); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	var out []byte
	if cfg.rich {
		out = []byte(result.RichText)
	} else if out, err = r.Render(result); err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(cfg.output, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func readDocument(path string) (layout.Document, error) {
	var doc layout.Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("无法读取文本对象 %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("解析文本对象 %s 失败: %w", path, err)
	}
	return doc, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
