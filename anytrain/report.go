package anytrain

import (
	"os"
	"time"

	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// A Report summarizes one epoch of training.
type Report struct {
	Epoch     int
	Iteration int

	// These are means over the epoch's training batches.
	TrainLoss     float64
	TrainAccuracy float64

	ValidationLoss     float64
	ValidationAccuracy float64

	Elapsed time.Duration
}

// Fields encodes the report for structured logging.
func (r *Report) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("epoch", r.Epoch),
		zap.Int("iteration", r.Iteration),
		zap.Float64("main/loss", r.TrainLoss),
		zap.Float64("validation/main/loss", r.ValidationLoss),
		zap.Float64("main/accuracy", r.TrainAccuracy),
		zap.Float64("validation/main/accuracy", r.ValidationAccuracy),
		zap.Float64("elapsed_time", r.Elapsed.Seconds()),
	}
}

// A Reporter receives a Report after every epoch.
type Reporter interface {
	Report(r *Report) error
}

// LogReporter writes reports to a logger.
type LogReporter struct {
	Logger *zap.Logger
}

// Report logs r at the info level.
func (l *LogReporter) Report(r *Report) error {
	l.Logger.Info("epoch done", r.Fields()...)
	return nil
}

// A FileReporter appends one JSON object per report to a
// log file.
type FileReporter struct {
	file   *os.File
	logger *zap.Logger
}

// NewFileReporter creates (or truncates) the log file.
func NewFileReporter(path string) (*FileReporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, essentials.AddCtx("create report log", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""
	encCfg.MessageKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f),
		zapcore.InfoLevel)
	return &FileReporter{file: f, logger: zap.New(core)}, nil
}

// Report appends r to the log file.
func (f *FileReporter) Report(r *Report) error {
	f.logger.Info("", r.Fields()...)
	return f.logger.Sync()
}

// Close closes the log file.
func (f *FileReporter) Close() error {
	f.logger.Sync()
	return f.file.Close()
}
