// Package mail 把均线扫描结果渲染成 HTML 报告并通过 SMTP 发送。
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockDash/internal/model"
	"stockDash/internal/trace"
)

// Report 一次扫描的结果。
type Report struct {
	Title   string
	Taken   time.Time
	Windows []int
	Stocks  []*model.Stock
}

type reportRow struct {
	Code      string
	Name      string
	Price     string
	ChangePct string
	Up        string
	MAs       []string
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.Title}}</title></head><body>
<h2>{{.Title}}</h2>
<p>生成时间：{{.Taken}}，共 {{len .Rows}} 只。</p>
<table border="1" cellspacing="0" cellpadding="6" style="border-collapse: collapse; font-size: 14px;">
<thead><tr style="background: #eee;"><th>代码</th><th>名称</th><th>现价</th><th>涨跌幅%</th>{{range .Windows}}<th>MA{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Code}}</td><td>{{.Name}}</td><td>{{.Price}}</td><td style="color: {{.Up}}">{{.ChangePct}}</td>{{range .MAs}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody></table>
</body></html>
`))

// 涨跌色
const (
	upColor   = "#FD1050"
	downColor = "#0CF49B"
)

// HTML 渲染报告正文。
func (r Report) HTML() (string, error) {
	rows := make([]reportRow, 0, len(r.Stocks))
	for _, s := range r.Stocks {
		if s == nil {
			continue
		}
		row := reportRow{
			Code:      s.Code,
			Name:      s.Name,
			Price:     fixed(s.Price),
			ChangePct: fixed(s.ChangePct),
			Up:        upColor,
		}
		if s.ChangePct < 0 {
			row.Up = downColor
		}
		for _, w := range r.Windows {
			if v, ok := s.MAOf(w); ok {
				row.MAs = append(row.MAs, fixed(v))
			} else {
				row.MAs = append(row.MAs, "-")
			}
		}
		rows = append(rows, row)
	}
	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		Title   string
		Taken   string
		Windows []int
		Rows    []reportRow
	}{r.Title, r.Taken.Format("2006-01-02 15:04:05"), r.Windows, rows})
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// SendReport 未配置 SMTP 或结果为空时不发送。
func SendReport(ctx context.Context, cfg *SMTPConfig, r Report) error {
	if len(r.Stocks) == 0 {
		trace.Log(ctx, "mail: 无入选股票，不发邮件")
		return nil
	}
	if cfg == nil || !cfg.Enabled() {
		trace.Log(ctx, "mail: 未配置 SMTP，跳过")
		return nil
	}
	body, err := r.HTML()
	if err != nil {
		return err
	}
	to := cfg.Recipients()
	trace.Log(ctx, "mail: SendReport to=%s count=%d", strings.Join(to, ","), len(r.Stocks))
	if err := send(ctx, cfg, r.Title, body, to); err != nil {
		return err
	}
	trace.Log(ctx, "mail: sent ok")
	return nil
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
