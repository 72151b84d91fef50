package anytrain

import "time"

// Window accumulates timing stats across multiple steps.
type Window struct {
	sequences int
	tokens    int
	data      time.Duration
	compute   time.Duration
	steps     int
	lastLoss  float64
}

// Record adds a step to the window.
func (w *Window) Record(sequences, tokens int, dataTime, computeTime time.Duration,
	loss float64) {
	w.sequences += sequences
	w.tokens += tokens
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the
// window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, LastLoss: w.lastLoss}
	total := w.data + w.compute
	if total > 0 {
		snap.TokensPerSec = float64(w.tokens) / total.Seconds()
		snap.SequencesPerSec = float64(w.sequences) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}
	*w = Window{}
	return snap
}

// Snapshot represents loggable timing metrics.
type Snapshot struct {
	Steps           int
	TokensPerSec    float64
	SequencesPerSec float64
	AvgDataMS       float64
	AvgComputeMS    float64
	LastLoss        float64
}
