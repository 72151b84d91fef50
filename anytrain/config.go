package anytrain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anydevice"
	"gopkg.in/yaml.v3"
)

// FinalLayer is the only supported output head: a softmax
// cross-entropy without a CRF.
const FinalLayer = "withoutCRF"

// Config captures the knobs for a training run.
type Config struct {
	BatchSize  int    `yaml:"batchsize" json:"batchsize"`
	Epoch      int    `yaml:"epoch" json:"epoch"`
	GPU        int    `yaml:"gpu" json:"gpu"`
	Out        string `yaml:"out" json:"out"`
	Resume     string `yaml:"resume" json:"resume"`
	Test       bool   `yaml:"test" json:"test"`
	Unit       int    `yaml:"unit" json:"unit"`
	Glove      string `yaml:"glove" json:"glove"`
	Dropout    bool   `yaml:"dropout" json:"dropout"`
	ModelType  string `yaml:"model_type" json:"model_type"`
	FinalLayer string `yaml:"final_layer" json:"final_layer"`

	Train string `yaml:"train" json:"train"`
	Dev   string `yaml:"dev" json:"dev"`

	Precision    string  `yaml:"precision" json:"precision"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`

	// Clip overrides the per-variant clipping default.
	Clip          *bool   `yaml:"clip" json:"clip"`
	ClipThreshold float64 `yaml:"clip_threshold" json:"clip_threshold"`

	SnapshotEvery int   `yaml:"snapshot_every" json:"snapshot_every"`
	LogEvery      int   `yaml:"log_every" json:"log_every"`
	EvalWorkers   int   `yaml:"eval_workers" json:"eval_workers"`
	TinySize      int   `yaml:"tiny_size" json:"tiny_size"`
	Seed          int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns the defaults of every setting.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:     20,
		Epoch:         6,
		GPU:           -1,
		Out:           "result",
		Unit:          100,
		FinalLayer:    FinalLayer,
		Train:         "work/train.txt",
		Dev:           "work/dev.txt",
		Precision:     anydevice.Float32,
		LearningRate:  0.001,
		ClipThreshold: 5,
		SnapshotEvery: 5,
		LogEvery:      10,
		EvalWorkers:   1,
		TinySize:      100,
	}
}

// LoadConfig reads a YAML file on top of the defaults.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Overrides captures command-line values.
// Zero values leave the config untouched.
type Overrides struct {
	BatchSize int
	Epoch     int
	GPU       *int
	Out       string
	Resume    string
	Test      bool
	Unit      int
	Glove     string
	Dropout   bool
	ModelType string
	Train     string
	Dev       string
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Epoch > 0 {
		c.Epoch = o.Epoch
	}
	if o.GPU != nil {
		c.GPU = *o.GPU
	}
	if o.Out != "" {
		c.Out = o.Out
	}
	if o.Resume != "" {
		c.Resume = o.Resume
	}
	if o.Test {
		c.Test = true
	}
	if o.Unit > 0 {
		c.Unit = o.Unit
	}
	if o.Glove != "" {
		c.Glove = o.Glove
	}
	if o.Dropout {
		c.Dropout = true
	}
	if o.ModelType != "" {
		c.ModelType = o.ModelType
	}
	if o.Train != "" {
		c.Train = o.Train
	}
	if o.Dev != "" {
		c.Dev = o.Dev
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := anyner.ParseVariant(c.ModelType); err != nil {
		return err
	}
	if c.FinalLayer != FinalLayer {
		return fmt.Errorf("unsupported final layer: %q", c.FinalLayer)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batchsize must be > 0 (got %d)", c.BatchSize)
	}
	if c.Epoch <= 0 {
		return fmt.Errorf("epoch must be > 0 (got %d)", c.Epoch)
	}
	if c.Unit <= 0 {
		return fmt.Errorf("unit must be > 0 (got %d)", c.Unit)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %f)", c.LearningRate)
	}
	if c.ClipThreshold <= 0 {
		return fmt.Errorf("clip_threshold must be > 0 (got %f)", c.ClipThreshold)
	}
	if c.Train == "" || c.Dev == "" {
		return errors.New("train and dev paths must be set")
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot_every must be >= 0 (got %d)", c.SnapshotEvery)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 10
	}
	if c.EvalWorkers <= 0 {
		c.EvalWorkers = 1
	}
	return nil
}

// Variant returns the parsed model type.
func (c *Config) Variant() anyner.Variant {
	v, err := anyner.ParseVariant(c.ModelType)
	if err != nil {
		panic(err)
	}
	return v
}

// UseClipping reports whether gradients are clipped.
func (c *Config) UseClipping() bool {
	if c.Clip != nil {
		return *c.Clip
	}
	return c.Variant().ClipsGradients()
}

// WriteSettings stores the config as settings.json in dir,
// with sorted keys.
func (c *Config) WriteSettings(dir string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var sorted map[string]interface{}
	if err := json.Unmarshal(data, &sorted); err != nil {
		return err
	}
	data, err = json.MarshalIndent(sorted, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "settings.json"), data, 0644)
}
