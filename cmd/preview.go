package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsreport/jsreport-designer-sub001/renderer"
	canvasrenderer "github.com/jsreport/jsreport-designer-sub001/renderer/canvas"
)

type previewOptions struct {
	payload  string
	out      string
	fontPath string
	scale    float64
}

func newPreviewCmd(root *rootFlags) *cobra.Command {
	opts := &previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "把设计的布局几何输出为 PDF 线框图",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.payload, "payload", "p", "", "设计 JSON 文件")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "preview.pdf", "PDF 输出路径")
	cmd.Flags().StringVar(&opts.fontPath, "font", "", "标注实例 ID 的字体文件，覆盖配置")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "尺寸缩放比例，覆盖配置")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func runPreview(cmd *cobra.Command, root *rootFlags, opts *previewOptions) error {
	a, err := newApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	payload, err := readPayload(opts.payload)
	if err != nil {
		return err
	}
	r, err := a.renderer()
	if err != nil {
		return err
	}
	geometry, err := r.Layout(payload)
	if err != nil {
		return err
	}

	fontPath := a.cfg.Preview.FontPath
	if opts.fontPath != "" {
		fontPath = opts.fontPath
	}
	scale := a.cfg.Preview.Scale
	if opts.scale > 0 {
		scale = opts.scale
	}

	var pr renderer.Renderer = canvasrenderer.NewRenderer(canvasrenderer.Options{
		FontPath: fontPath,
		Scale:    scale,
		Title:    opts.payload,
	})
	pdf, err := pr.Render(geometry)
	if err != nil {
		return fmt.Errorf("生成 PDF 失败: %w", err)
	}
	if err := writeOutput(cmd.OutOrStdout(), opts.out, pdf); err != nil {
		return err
	}
	a.log.With("out", opts.out).Info("preview written")
	return nil
}
