package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsreport/jsreport-designer-sub001/layout"
)

type renderOptions struct {
	payload string
	data    string
	out     string
	helpers string
	debug   string
}

func newRenderCmd(root *rootFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "把设计 JSON 渲染为 HTML 模板",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.payload, "payload", "p", "", "设计 JSON 文件")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "绑定数据 JSON 文件")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "HTML 输出路径，缺省写到标准输出")
	cmd.Flags().StringVar(&opts.helpers, "helpers", "", "组件助手源码输出路径")
	cmd.Flags().StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func runRender(cmd *cobra.Command, root *rootFlags, opts *renderOptions) error {
	a, err := newApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	payload, err := readPayload(opts.payload)
	if err != nil {
		return err
	}
	data, err := readData(opts.data)
	if err != nil {
		return err
	}
	r, err := a.renderer()
	if err != nil {
		return err
	}

	out, err := r.Render(payload, data)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := writeOutput(cmd.OutOrStdout(), opts.out, []byte(out.Content)); err != nil {
		return err
	}

	if opts.helpers != "" {
		helpers := ""
		if out.Helpers != nil {
			helpers = *out.Helpers
		}
		if err := writeOutput(cmd.OutOrStdout(), opts.helpers, []byte(helpers)); err != nil {
			return err
		}
	}

	if opts.debug != "" {
		geometry, err := r.Layout(payload)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := layout.WriteDebugJSON(&buf, geometry); err != nil {
			return fmt.Errorf("写入布局调试 JSON 失败: %w", err)
		}
		if err := os.WriteFile(opts.debug, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", opts.debug, err)
		}
	}

	a.log.With("out", opts.out).Info("design rendered")
	return nil
}
