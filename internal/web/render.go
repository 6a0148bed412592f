package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"stockDash/internal/table"
	"stockDash/internal/trace"
)

var funcs = template.FuncMap{
	"placeholder": func() string { return table.Placeholder },
	// signClass 按 "+"/"-" 前缀给涨跌着色
	"signClass": func(v string) string {
		switch {
		case strings.HasPrefix(v, "-"):
			return "down"
		case v == "" || v == table.Placeholder || strings.HasPrefix(v, "0.00"):
			return ""
		default:
			return "up"
		}
	},
}

type errorPage struct {
	Status  int
	Message string
}

// render 先渲染到缓冲区，模板出错时返回 500 而不是半截页面。
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		trace.Error(r.Context(), err, "web: render %s", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		trace.Debug(r.Context(), "web: write %s: %v", name, err)
	}
}
