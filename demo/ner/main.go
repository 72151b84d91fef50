package main

import (
	"flag"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anydata"
	"github.com/unixpickle/anyner/anydevice"
	"github.com/unixpickle/anyner/anysgd"
	"github.com/unixpickle/anyner/anytag"
	"github.com/unixpickle/anyner/anytrain"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	var o anytrain.Overrides
	var gpu int
	var finalLayer string
	flag.StringVar(&configPath, "config", "", "YAML config file")
	flag.IntVar(&o.BatchSize, "batchsize", 0, "number of examples in each mini-batch")
	flag.IntVar(&o.Epoch, "epoch", 0, "number of sweeps over the dataset to train")
	flag.IntVar(&gpu, "gpu", -1, "accelerator ID (negative value indicates CPU)")
	flag.StringVar(&o.Out, "out", "", "directory to output the result")
	flag.StringVar(&o.Resume, "resume", "", "resume the training from a snapshot")
	flag.BoolVar(&o.Test, "test", false, "use tiny datasets for quick tests")
	flag.IntVar(&o.Unit, "unit", 0, "number of LSTM units in each layer")
	flag.StringVar(&o.Glove, "glove", "", "path to GloVe vectors")
	flag.BoolVar(&o.Dropout, "dropout", false, "apply dropout to the embeddings")
	flag.StringVar(&o.ModelType, "model-type", "", "lstm, bilstm or charlstm")
	flag.StringVar(&finalLayer, "final-layer", anytrain.FinalLayer, "output layer")
	flag.StringVar(&o.Train, "train", "", "training data in CoNLL format")
	flag.StringVar(&o.Dev, "dev", "", "development data in CoNLL format")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := anytrain.DefaultConfig()
	if configPath != "" {
		cfg, err = anytrain.LoadConfig(configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
	}
	if isFlagSet("gpu") {
		o.GPU = &gpu
	}
	if isFlagSet("final-layer") {
		cfg.FinalLayer = finalLayer
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}
}

func run(cfg *anytrain.Config, logger *zap.Logger) error {
	backend, err := anydevice.Open(cfg.GPU, cfg.Precision)
	if err != nil {
		return err
	}
	logger.Info("opened backend", zap.String("device", backend.Describe()))

	runDir := filepath.Join(cfg.Out, time.Now().Format("20060102_15_04_05"))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}
	if err := cfg.WriteSettings(runDir); err != nil {
		return essentials.AddCtx("write settings", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	shuffleRand := rand.New(rand.NewSource(seed))
	coinRand := rand.New(rand.NewSource(seed + 1))

	variant := cfg.Variant()
	corpus, err := loadCorpus(cfg, variant)
	if err != nil {
		return err
	}
	logger.Info("loaded corpus",
		zap.Int("train", len(corpus.Train)),
		zap.Int("dev", len(corpus.Dev)),
		zap.Int("words", corpus.Words.Len()),
		zap.Int("tags", corpus.Tags.Len()),
		zap.Int("singletons", corpus.Singletons.Len()))

	creator := backend.Creator
	adam := &anysgd.Adam{}
	var model anyner.Tagger
	var iteration, startEpoch int
	if cfg.Resume != "" {
		ckpt, err := anytrain.LoadCheckpoint(cfg.Resume)
		if err != nil {
			return err
		}
		if err := anytag.CheckVariant(ckpt.Model, variant); err != nil {
			return essentials.AddCtx("resume", err)
		}
		if err := ckpt.Restore(adam); err != nil {
			return err
		}
		model, iteration, startEpoch = ckpt.Model, ckpt.Iteration, ckpt.Epoch
		creator = model.Parameters()[0].Vector.Creator()
		logger.Info("resumed", zap.String("snapshot", cfg.Resume),
			zap.Int("iteration", iteration), zap.Int("epoch", startEpoch))
	} else {
		model, err = anytag.New(creator, variant, anytag.Dims{
			Vocab:   corpus.Words.Len(),
			Chars:   corpus.Chars.Len(),
			Tags:    corpus.Tags.Len(),
			Unit:    cfg.Unit,
			Dropout: cfg.Dropout,
		})
		if err != nil {
			return err
		}
		logger.Info("created model", zap.Stringer("variant", variant))
		if cfg.Glove != "" {
			if err := loadGloVe(cfg.Glove, corpus, model, logger); err != nil {
				return err
			}
		}
	}

	trainer := &anytrain.Trainer{
		Creator: creator,
		Model:   model,
		Regularizer: &anyner.Regularizer{
			Singletons: corpus.Singletons,
			UnknownID:  anyner.DefaultUnknownID,
			Coin:       anyner.FairCoin{Rand: coinRand},
		},
		Transformer: adam,
		Rater:       anysgd.ConstRater(cfg.LearningRate),
		Iteration:   iteration,
	}
	if cfg.UseClipping() {
		trainer.Clip = &anysgd.Clip{Threshold: cfg.ClipThreshold}
	}

	fileReporter, err := anytrain.NewFileReporter(filepath.Join(runDir, "log"))
	if err != nil {
		return err
	}
	defer fileReporter.Close()

	train := &anydata.Prefetcher{Source: &anydata.SerialIterator{
		Examples:  corpus.Train,
		BatchSize: cfg.BatchSize,
		Repeat:    true,
		Shuffle:   true,
		UseChars:  variant.UsesChars(),
		Rand:      shuffleRand,
	}}
	defer train.Close()

	loop := &anytrain.Loop{
		Trainer: trainer,
		Evaluator: &anytrain.Evaluator{
			Creator: creator,
			Model:   model,
			Workers: cfg.EvalWorkers,
		},
		Train: train,
		Dev: &anydata.SerialIterator{
			Examples:  corpus.Dev,
			BatchSize: cfg.BatchSize,
			UseChars:  variant.UsesChars(),
		},
		Epochs:        cfg.Epoch,
		StartEpoch:    startEpoch,
		OutDir:        runDir,
		SnapshotEvery: cfg.SnapshotEvery,
		Optimizer:     adam,
		Reporters: []anytrain.Reporter{
			&anytrain.LogReporter{Logger: logger},
			fileReporter,
		},
		Logger:   logger,
		LogEvery: cfg.LogEvery,
	}

	logger.Info("Press ctrl+c once to stop...")
	return loop.Run(rip.NewRIP().Chan())
}

func loadCorpus(cfg *anytrain.Config, variant anyner.Variant) (*anydata.Corpus, error) {
	train, err := anydata.ReadCoNLLFile(cfg.Train)
	if err != nil {
		return nil, err
	}
	dev, err := anydata.ReadCoNLLFile(cfg.Dev)
	if err != nil {
		return nil, err
	}
	corpus, err := anydata.BuildCorpus(train, dev, variant.UsesChars())
	if err != nil {
		return nil, err
	}
	if cfg.Test {
		corpus.Train = anydata.Tiny(corpus.Train, cfg.TinySize)
		corpus.Dev = anydata.Tiny(corpus.Dev, cfg.TinySize)
	}
	return corpus, nil
}

func loadGloVe(path string, corpus *anydata.Corpus, model anyner.Tagger,
	logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	logger.Info("loading GloVe", zap.String("path", path))
	n, err := anytag.LoadGloVe(f, corpus.Words.Map(), anytag.WordEmbedding(model))
	if err != nil {
		return err
	}
	logger.Info("loaded GloVe", zap.Int("rows", n), zap.Int("vocab", corpus.Words.Len()))
	return nil
}

func isFlagSet(name string) bool {
	var res bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			res = true
		}
	})
	return res
}
