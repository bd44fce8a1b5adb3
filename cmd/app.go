package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jsreport/jsreport-designer-sub001/binding"
	"github.com/jsreport/jsreport-designer-sub001/compiler"
	"github.com/jsreport/jsreport-designer-sub001/components"
	"github.com/jsreport/jsreport-designer-sub001/config"
	"github.com/jsreport/jsreport-designer-sub001/design"
	"github.com/jsreport/jsreport-designer-sub001/logger"
	"github.com/jsreport/jsreport-designer-sub001/registry"
)

// app 汇集一次命令执行所需的配置、日志与组件注册表。
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *registry.Registry
}

func newApp(flags *rootFlags, stderr io.Writer) (*app, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, HumanReadable: cfg.Log.Human, Writer: stderr})
	if err != nil {
		return nil, fmt.Errorf("创建日志器失败: %w", err)
	}

	reg := registry.New()
	if err := components.Register(reg); err != nil {
		return nil, err
	}
	for _, dir := range cfg.Extensions {
		names, err := reg.LoadExtensions(os.DirFS(dir), ".")
		if err != nil {
			return nil, fmt.Errorf("加载扩展组件 %s 失败: %w", dir, err)
		}
		log.WithFields(map[string]any{"dir": dir, "components": names}).Debug("extensions loaded")
	}

	return &app{cfg: cfg, log: log, registry: reg}, nil
}

func (a *app) renderer() (*design.Renderer, error) {
	opts := design.Options{
		Minify:  a.cfg.Render.Minify,
		Percent: a.cfg.Render.Percent,
		Logger:  a.log,
	}
	if a.cfg.Render.BaseLayout != "" {
		data, err := os.ReadFile(a.cfg.Render.BaseLayout)
		if err != nil {
			return nil, fmt.Errorf("读取基础布局 %s 失败: %w", a.cfg.Render.BaseLayout, err)
		}
		opts.BaseLayout = string(data)
	}
	return design.New(a.registry, compiler.New(compiler.Options{}), binding.NewResolver(binding.Options{}), opts), nil
}

func readPayload(path string) (*design.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取设计文件 %s 失败: %w", path, err)
	}
	return design.ParsePayload(data)
}

func readData(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件 %s 失败: %w", path, err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("解析数据 JSON 失败: %w", err)
	}
	return data, nil
}

// writeOutput 写入文件；path 为空或 "-" 时写到 w。
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}
