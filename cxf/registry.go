package cxf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/ByLCY/mtext/fonts"
	"github.com/ByLCY/mtext/internal/logging"
)

// ErrNoGlyphs 表示既找不到请求的字体，也没有可用的回退字体。
var ErrNoGlyphs = errors.New("cxf: 没有可用的笔画字体")

// RegistryOptions 配置笔画字体的查找。
type RegistryOptions struct {
	Dirs     []string // 额外的 .cxf 搜索目录，按顺序查找
	Fallback string   // 回退字体名，默认为内置的 standard
}

// Registry 按名称（大小写不敏感，忽略目录与扩展名）管理笔画字体，可并发使用。
type Registry struct {
	opts RegistryOptions

	mu      sync.Mutex
	fonts   map[string]*Font
	missing map[string]struct{}
}

// NewRegistry 创建注册表并载入内置笔画字体。
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Fallback == "" {
		opts.Fallback = fonts.StandardStroke
	}
	r := &Registry{
		opts:    opts,
		fonts:   map[string]*Font{},
		missing: map[string]struct{}{},
	}
	for _, name := range fonts.StrokeNames() {
		data, err := fonts.Load(name)
		if err != nil {
			return nil, err
		}
		f, err := Parse(name, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		r.register(name, f)
	}
	return r, nil
}

// Key 规范化字体名：去掉目录与 .cxf/.shx 扩展名并做大小写折叠。
func Key(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.ToSlash(name))
	switch strings.ToLower(filepath.Ext(base)) {
	case ".cxf", ".shx":
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return cases.Fold().String(base)
}

// Register 以字体自身名称注册字体，覆盖同名字体。
func (r *Registry) Register(f *Font) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(f.Name, f)
}

func (r *Registry) register(name string, f *Font) {
	for _, n := range []string{name, f.Name} {
		if k := Key(n); k != "" {
			r.fonts[k] = f
			delete(r.missing, k)
		}
	}
}

// Get 查找字体：先查已注册字体，再在搜索目录中查找同名 .cxf 文件。
func (r *Registry) Get(name string) (*Font, bool) {
	key := Key(name)
	if key == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.fonts[key]; ok {
		return f, true
	}
	if _, ok := r.missing[key]; ok {
		return nil, false
	}
	f, err := r.loadFromDirs(key)
	if err != nil {
		logging.Logger().Warn("载入笔画字体失败", "font", name, "err", err)
	}
	if f == nil {
		r.missing[key] = struct{}{}
		return nil, false
	}
	r.fonts[key] = f
	return f, true
}

// Resolve 返回请求的字体，找不到时返回回退字体。
func (r *Registry) Resolve(name string) (*Font, error) {
	if f, ok := r.Get(name); ok {
		return f, nil
	}
	fb, ok := r.Get(r.opts.Fallback)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoGlyphs, name)
	}
	logging.Logger().Debug("笔画字体不存在，使用回退字体", "font", name, "fallback", fb.Name)
	return fb, nil
}

// Names 返回已载入的字体键。
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.fonts))
	for k := range r.fonts {
		out = append(out, k)
	}
	return out
}

func (r *Registry) loadFromDirs(key string) (*Font, error) {
	for _, dir := range r.opts.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logging.Logger().Debug("跳过笔画字体目录", "dir", dir, "err", err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".cxf") || Key(e.Name()) != key {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
			}
			f, err := Parse(path, bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			logging.Logger().Debug("载入笔画字体", "path", path, "glyphs", len(f.glyphs))
			return f, nil
		}
	}
	return nil, nil
}
