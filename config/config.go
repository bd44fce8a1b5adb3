// Package config 读取 designer.yaml 配置文件。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config 是命令行与渲染流程的全部可配置项。
type Config struct {
	Log        LogConfig     `yaml:"log"`
	Render     RenderConfig  `yaml:"render"`
	Extensions []string      `yaml:"extensions" validate:"dive,required"`
	Preview    PreviewConfig `yaml:"preview"`
}

// LogConfig 对应 logger.Options。
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Human bool   `yaml:"human"`
}

// RenderConfig 控制设计渲染。
type RenderConfig struct {
	// BaseLayout 为空时使用内置基础布局。
	BaseLayout string `yaml:"baseLayout"`
	Minify     bool   `yaml:"minify"`
	Percent    bool   `yaml:"percent"`
}

// PreviewConfig 控制 PDF 线框预览。
type PreviewConfig struct {
	FontPath string  `yaml:"fontPath"`
	Scale    float64 `yaml:"scale" validate:"gte=0"`
}

// Default 返回未提供配置文件时使用的配置。
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Human: true},
		Preview: PreviewConfig{Scale: 1},
	}
}

// Load 读取并校验 path 处的 YAML 配置；缺省字段取 Default 中的值。
// 相对路径的扩展目录、基础布局与字体按配置文件所在目录解析。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("配置 %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse 解析并校验 YAML 内容。
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = abs(ext)
	}
	c.Render.BaseLayout = abs(c.Render.BaseLayout)
	c.Preview.FontPath = abs(c.Preview.FontPath)
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validateInst = v
	})
	return validateInst
}

// Validate 执行结构校验，错误信息使用 YAML 字段路径。
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("配置为空")
	}
	if err := validatorInstance().Struct(cfg); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			fe := ves[0]
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			return fmt.Errorf("字段 %s 未通过校验 '%s'（当前值 %v）", field, fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}
