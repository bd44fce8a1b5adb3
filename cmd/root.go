// Package cmd 实现 designer 命令行：渲染设计、输出 PDF 线框预览、列出组件。
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

// Execute 运行根命令，出错时以非零状态退出。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd 构建根命令及全部子命令。
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "designer",
		Short:         "把可视化设计渲染为 HTML 模板",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "designer.yaml 配置文件路径")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "覆盖配置中的日志级别")

	cmd.AddCommand(newRenderCmd(flags))
	cmd.AddCommand(newPreviewCmd(flags))
	cmd.AddCommand(newComponentsCmd(flags))

	return cmd
}
