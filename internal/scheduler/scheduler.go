// Package scheduler 按 cron 表达式定时抓取全市场行情快照并交给 recorder 持久化。
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"stockDash/internal/model"
	"stockDash/internal/recorder"
	"stockDash/internal/trace"
)

// 单次快照超时
const snapshotTimeout = 2 * time.Minute

// SpotSource 行情来源，*api.Client 满足。
type SpotSource interface {
	SpotQuotes(ctx context.Context) ([]model.StockQuote, error)
}

type Scheduler struct {
	Cron     *cron.Cron
	Source   SpotSource
	Recorder recorder.Recorder
	Ctx      context.Context
}

func New(ctx context.Context, src SpotSource, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Source:   src,
		Recorder: rec,
		Ctx:      ctx,
	}
}

// Register 注册快照任务；spec 为 6 段 cron（含秒）。
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	trace.Log(s.Ctx, "scheduler: snapshot task registered cron=%q", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	trace.Log(s.Ctx, "scheduler: started")
}

// Stop 停止调度并等待正在执行的任务结束。
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	trace.Log(s.Ctx, "scheduler: stopped")
}

func (s *Scheduler) snapshotTask() {
	ctx := trace.WithTraceID(s.Ctx, trace.NewTraceID())
	if _, err := s.RunNow(ctx); err != nil {
		trace.Error(ctx, err, "scheduler: snapshot failed")
	}
}

// RunNow 立即抓取并记录一次快照。
func (s *Scheduler) RunNow(ctx context.Context) (*recorder.SpotSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	quotes, err := s.Source.SpotQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch spot: %w", err)
	}
	snap := &recorder.SpotSnapshot{Taken: time.Now(), Quotes: quotes}
	if err := s.Recorder.RecordSpot(snap); err != nil {
		return nil, fmt.Errorf("record spot: %w", err)
	}
	trace.Log(ctx, "scheduler: snapshot id=%d quotes=%d", snap.ID, len(quotes))
	return snap, nil
}
