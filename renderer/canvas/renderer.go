package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/jsreport/jsreport-designer-sub001/layout"
	"github.com/jsreport/jsreport-designer-sub001/renderer"
)

const (
	guideWidth   = 0.1
	outlineWidth = 0.3
	labelSizePt  = 7.0
	labelPadding = 1.0
)

var (
	guideColor = canvas.RGBA(0.85, 0.85, 0.85, 1)
	gridColor  = canvas.RGBA(0.16, 0.44, 0.84, 1)
	gridFill   = canvas.RGBA(0.16, 0.44, 0.84, 0.12)
	freeColor  = canvas.RGBA(0.85, 0.33, 0.10, 1)
	freeFill   = canvas.RGBA(0.85, 0.33, 0.10, 0.12)
	spaceFill  = canvas.RGBA(0.5, 0.5, 0.5, 0.08)
	labelColor = canvas.RGBA(0.1, 0.1, 0.1, 1)
)

// Renderer 通过 github.com/tdewolff/canvas 把布局几何绘制为 PDF 线框图：
// 列参考线、每个网格实例的跨度与 left/right 留白、自由定位实例的外框。
type Renderer struct {
	opts Options

	fontOnce sync.Once
	family   *canvas.FontFamily
	fontErr  error
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options 配置线框渲染器。
type Options struct {
	// FontPath/FontBytes 提供用于标注实例 ID 的字体；都为空时不绘制标注。
	FontPath  string
	FontBytes []byte
	// Scale 作用于 px→mm 换算后的尺寸，<=0 时为 1。
	Scale float64
	Title string
}

// NewRenderer 创建线框渲染器。
func NewRenderer(opts Options) *Renderer {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	return &Renderer{opts: opts}
}

// Render 实现 renderer.Renderer，返回单页 PDF。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("布局结果为空")
	}
	face, err := r.labelFace()
	if err != nil {
		return nil, err
	}

	grid := result.Grid
	rowsHeight := 0.0
	for _, row := range result.Rows {
		rowsHeight += row.TopSpacePx + rowHeight(row, grid)
	}
	pageW := r.mm(grid.Width)
	pageH := r.mm(math.Max(grid.Height, rowsHeight))
	for _, box := range result.Free {
		pageH = math.Max(pageH, r.mm(box.Top+boxHeight(box, grid)))
	}
	if pageW <= 0 || pageH <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %gx%g", pageW, pageH)
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, pageW, pageH, nil)
	title := r.opts.Title
	if title == "" {
		title = "layout preview"
	}
	writer.SetInfo(title, "", "", "", "designer")

	c := canvas.New(pageW, pageH)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点，与网格坐标一致

	r.drawGuides(ctx, grid, pageH)

	cursorY := 0.0
	for _, row := range result.Rows {
		cursorY += row.TopSpacePx
		h := rowHeight(row, grid)
		cursorX := 0.0
		for _, box := range row.Boxes {
			cursorX += box.LeftSpace
			if box.LeftSpace > 0 {
				r.drawRect(ctx, cursorX-box.LeftSpace, cursorY, box.LeftSpace, h, spaceFill, nil)
			}
			r.drawRect(ctx, cursorX, cursorY, box.Width, h, gridFill, gridColor)
			if box.RightSpace > 0 {
				r.drawRect(ctx, cursorX+box.Width-box.RightSpace, cursorY, box.RightSpace, h, spaceFill, nil)
			}
			r.drawLabel(ctx, face, box, cursorX, cursorY)
			cursorX += box.Width
		}
		cursorY += h
	}

	for _, box := range result.Free {
		w := box.Width
		if w <= 0 {
			w = grid.BaseColWidth()
		}
		r.drawRect(ctx, box.Left, box.Top, w, boxHeight(box, grid), freeFill, freeColor)
		r.drawLabel(ctx, face, box, box.Left, box.Top)
	}

	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// drawGuides 绘制列参考线。
func (r *Renderer) drawGuides(ctx *canvas.Context, grid layout.Grid, pageH float64) {
	base := r.mm(grid.BaseColWidth())
	ctx.SetStrokeColor(guideColor)
	ctx.SetStrokeWidth(guideWidth)
	for i := 0; i <= grid.NumberOfCols; i++ {
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(0, pageH)
		ctx.DrawPath(float64(i)*base, 0, p)
	}
}

// drawRect 以 px 坐标绘制矩形，stroke 为 nil 时不描边。
func (r *Renderer) drawRect(ctx *canvas.Context, x, y, w, h float64, fill color.Color, stroke color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	ctx.SetFillColor(fill)
	if stroke != nil {
		ctx.SetStrokeColor(stroke)
		ctx.SetStrokeWidth(outlineWidth)
	} else {
		ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
		ctx.SetStrokeWidth(0)
	}
	ctx.DrawPath(r.mm(x), r.mm(y), canvas.Rectangle(r.mm(w), r.mm(h)))
}

func (r *Renderer) drawLabel(ctx *canvas.Context, face *canvas.FontFace, box layout.Box, x, y float64) {
	if face == nil || box.ID == "" {
		return
	}
	metrics := face.Metrics()
	line := canvas.NewTextLine(face, box.ID, canvas.Left)
	ctx.DrawText(r.mm(x)+labelPadding, r.mm(y)+labelPadding+metrics.Ascent, line)
}

// labelFace 懒加载标注字体，未配置字体时返回 nil。
func (r *Renderer) labelFace() (*canvas.FontFace, error) {
	if r.opts.FontPath == "" && len(r.opts.FontBytes) == 0 {
		return nil, nil
	}
	r.fontOnce.Do(func() {
		data := r.opts.FontBytes
		if len(data) == 0 {
			data, r.fontErr = os.ReadFile(r.opts.FontPath)
			if r.fontErr != nil {
				r.fontErr = fmt.Errorf("读取字体 %s 失败: %w", r.opts.FontPath, r.fontErr)
				return
			}
		}
		family := canvas.NewFontFamily("preview")
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			r.fontErr = fmt.Errorf("加载字体失败: %w", err)
			return
		}
		r.family = family
	})
	if r.fontErr != nil {
		return nil, r.fontErr
	}
	return r.family.Face(labelSizePt, labelColor, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) mm(px float64) float64 {
	return layout.Px(px).ToMM() * r.opts.Scale
}

func rowHeight(row layout.Row, grid layout.Grid) float64 {
	h := grid.RowHeight
	for _, box := range row.Boxes {
		h = math.Max(h, box.Height)
	}
	if h <= 0 {
		h = 1
	}
	return h
}

func boxHeight(box layout.Box, grid layout.Grid) float64 {
	if box.Height > 0 {
		return box.Height
	}
	if grid.RowHeight > 0 {
		return grid.RowHeight
	}
	return 1
}
