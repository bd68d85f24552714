// Package eodobs wraps the EOD summarizer with logging and tracing.
package eodobs

import (
	"context"
	"time"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

// Wrap wraps a summarizer with observability middleware.
func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{summarizer: summarizer}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting EOD summary generation", "date", t.Format("2006-01-02"))

	csvPath, err := oes.summarizer.SummarizeDay(t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary generation failed", err, "date", t.Format("2006-01-02"))
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No trades to summarize", "date", t.Format("2006-01-02"))
	} else {
		logger.InfoSkip(ctx, 1, "EOD summary written", "path", csvPath)
	}
	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	return oes.SummarizeDay(time.Now().In(time.FixedZone("IST", 19800)))
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	return oes.summarizer.ShouldRunNow()
}
