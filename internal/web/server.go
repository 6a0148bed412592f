// Package web 提供股票列表页、个股详情页与 K 线 JSON 接口。
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"stockDash/internal/api"
	"stockDash/internal/chart"
	"stockDash/internal/model"
	"stockDash/internal/series"
	"stockDash/internal/trace"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Gateway 页面与接口用到的网关能力，*api.Client 实现该接口。
type Gateway interface {
	DailyBars(ctx context.Context, q api.HistQuery) ([]model.RawBar, error)
	Spot(ctx context.Context) ([]gjson.Result, error)
	SpotBySymbol(ctx context.Context, symbol string) (gjson.Result, error)
	CompanyInfo(ctx context.Context, symbol string) ([]model.InfoItem, error)
	FundFlow(ctx context.Context, symbol string) ([]gjson.Result, error)
	Dragon(ctx context.Context, symbol string) ([]gjson.Result, error)
	Shareholders(ctx context.Context, symbol string) ([]gjson.Result, error)
	News(ctx context.Context, symbol string) ([]model.NewsItem, error)
}

// Options 服务参数，零值字段取默认。
type Options struct {
	Windows         []int
	Chart           chart.Options
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	gw    Gateway
	opts  Options
	pages *template.Template
	now   func() time.Time
}

func NewServer(gw Gateway, opts Options) (*Server, error) {
	if len(opts.Windows) == 0 {
		opts.Windows = series.DefaultWindows
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	pages, err := template.New("").Funcs(funcs).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{gw: gw, opts: opts, pages: pages, now: time.Now}, nil
}

// Handler 注册全部路由并套上 trace 中间件。
func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(assets, "static")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /stock", s.handleDetail)
	mux.HandleFunc("GET /api/kline", s.handleKline)
	mux.HandleFunc("GET /api/spot", s.handleSpot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return withTrace(mux)
}

// Run 监听 addr 直到 ctx 取消，然后在 ShutdownTimeout 内优雅关闭。
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	trace.Log(ctx, "web: listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	trace.Log(ctx, "web: shutting down")
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withTrace 每个请求一个 trace id，写入响应头并记录耗时。
func withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := trace.NewTraceID()
		ctx := trace.WithTraceID(r.Context(), id)
		w.Header().Set("X-Trace-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		trace.Debug(ctx, "%s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Millisecond))
	})
}
