package optimizer

import "time"

// Recorder 优化过程指标记录，多起点优化时会被并发调用
type Recorder interface {
	MoveProposed()
	MoveAccepted(score float64)
	MoveRejected(reason string)
	RunFinished(stopReason string, iterations int, score float64, duration time.Duration)
}

// NopRecorder 不记录任何指标
type NopRecorder struct{}

func (NopRecorder) MoveProposed()                                   {}
func (NopRecorder) MoveAccepted(float64)                            {}
func (NopRecorder) MoveRejected(string)                             {}
func (NopRecorder) RunFinished(string, int, float64, time.Duration) {}
