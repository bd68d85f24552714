package interfaces

import "time"

// EodSummarizer produces the end-of-day CSV summary from the trade log.
type EodSummarizer interface {
	SummarizeDay(t time.Time) (csvPath string, err error)
	SummarizeToday() (csvPath string, err error)
	ShouldRunNow() (shouldRun bool, csvPath string)
}
