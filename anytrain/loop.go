package anytrain

import (
	"context"
	"time"

	"github.com/unixpickle/anyner/anydata"
	"github.com/unixpickle/anyner/anysgd"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

// A Loop trains for a number of epochs, evaluating and
// reporting after each one.
type Loop struct {
	Trainer   *Trainer
	Evaluator *Evaluator

	Train anydata.Source
	Dev   *anydata.SerialIterator

	// Epochs is the total number of passes, counting
	// StartEpoch.
	Epochs int

	// StartEpoch is the number of passes completed before
	// Run was called, as when resuming from a checkpoint.
	StartEpoch int

	// OutDir is where snapshots are written.
	// If SnapshotEvery is 0, no snapshots are taken.
	OutDir        string
	SnapshotEvery int

	// Optimizer, if non-nil, has its state saved with
	// each snapshot.
	// It is usually the Trainer's Transformer.
	Optimizer anysgd.TransformMarshaler

	Reporters []Reporter

	// Logger receives timing logs every LogEvery steps.
	// If nil, nothing is logged.
	Logger   *zap.Logger
	LogEvery int
}

// Run trains until the last epoch ends or done is closed.
// The done channel is only checked between steps.
func (l *Loop) Run(done <-chan struct{}) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	var window Window
	var lossSum, accSum float64
	var batches int
	for l.StartEpoch+l.Train.Epoch() < l.Epochs {
		select {
		case <-done:
			logger.Info("training stopped", zap.Int("iteration", l.Trainer.Iteration))
			return nil
		default:
		}

		epochDetail := l.Train.EpochDetail()
		dataStart := time.Now()
		batch, err := l.Train.Next()
		if err != nil {
			return essentials.AddCtx("training loop", err)
		}
		dataTime := time.Since(dataStart)

		computeStart := time.Now()
		l.Trainer.StepBatch(batch, float64(l.StartEpoch)+epochDetail)
		window.Record(batch.Len(), batch.NumTokens(), dataTime, time.Since(computeStart),
			l.Trainer.LastLoss)
		lossSum += l.Trainer.LastLoss
		accSum += l.Trainer.LastAccuracy
		batches++

		if l.LogEvery > 0 && l.Trainer.Iteration%l.LogEvery == 0 {
			snap := window.Snapshot()
			logger.Info("training",
				zap.Int("iteration", l.Trainer.Iteration),
				zap.Float64("epoch", float64(l.StartEpoch)+l.Train.EpochDetail()),
				zap.Float64("tokens_per_sec", snap.TokensPerSec),
				zap.Float64("data_ms", snap.AvgDataMS),
				zap.Float64("compute_ms", snap.AvgComputeMS),
				zap.Float64("loss", snap.LastLoss))
		}

		if !l.Train.IsNewEpoch() {
			continue
		}
		epoch := l.StartEpoch + l.Train.Epoch()
		summary, err := l.Evaluator.Evaluate(ctx, l.Dev)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("training stopped", zap.Int("iteration", l.Trainer.Iteration))
				return nil
			}
			return err
		}
		report := &Report{
			Epoch:              epoch,
			Iteration:          l.Trainer.Iteration,
			TrainLoss:          lossSum / float64(batches),
			TrainAccuracy:      accSum / float64(batches),
			ValidationLoss:     summary.Loss,
			ValidationAccuracy: summary.Accuracy,
			Elapsed:            time.Since(start),
		}
		lossSum, accSum, batches = 0, 0, 0
		for _, r := range l.Reporters {
			if err := r.Report(report); err != nil {
				return essentials.AddCtx("report", err)
			}
		}
		if l.SnapshotEvery > 0 && epoch%l.SnapshotEvery == 0 {
			if err := l.snapshot(epoch); err != nil {
				return err
			}
			logger.Info("saved snapshot", zap.Int("epoch", epoch),
				zap.Int("iteration", l.Trainer.Iteration))
		}
	}
	return nil
}

func (l *Loop) snapshot(epoch int) error {
	ckpt, err := NewCheckpoint(l.Trainer.Model, l.Optimizer, l.Trainer.Iteration, epoch)
	if err != nil {
		return err
	}
	return SaveCheckpoint(CheckpointPath(l.OutDir, l.Trainer.Iteration), ckpt)
}
