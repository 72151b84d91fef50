package anytrain

import (
	"fmt"
	"path/filepath"

	"github.com/unixpickle/anyner"
	"github.com/unixpickle/anyner/anysgd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Checkpoint
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCheckpoint)
}

// A Checkpoint is a snapshot of a training run from which
// training can be resumed.
//
// Random number generator state is not saved, so a
// resumed run will not replay the original batches.
type Checkpoint struct {
	Model     anyner.Tagger
	Optimizer []byte
	Iteration int
	Epoch     int
}

// NewCheckpoint snapshots the model and the state of the
// optimizer, if there is one.
//
// An Adam optimizer must already be bound to the model's
// parameters, as done by Trainer.Optimizer.
func NewCheckpoint(model anyner.Tagger, opt anysgd.TransformMarshaler, iteration,
	epoch int) (*Checkpoint, error) {
	res := &Checkpoint{Model: model, Iteration: iteration, Epoch: epoch}
	if opt != nil {
		data, err := opt.MarshalBinary()
		if err != nil {
			return nil, essentials.AddCtx("checkpoint", err)
		}
		res.Optimizer = data
	}
	return res, nil
}

// DeserializeCheckpoint deserializes a Checkpoint.
func DeserializeCheckpoint(d []byte) (*Checkpoint, error) {
	var modelData, optData serializer.Bytes
	var iter, epoch serializer.Int
	if err := serializer.DeserializeAny(d, &modelData, &optData, &iter, &epoch); err != nil {
		return nil, essentials.AddCtx("deserialize Checkpoint", err)
	}
	obj, err := serializer.DeserializeWithType(modelData)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Checkpoint", err)
	}
	model, ok := obj.(anyner.Tagger)
	if !ok {
		return nil, fmt.Errorf("deserialize Checkpoint: not a Tagger: %T", obj)
	}
	return &Checkpoint{
		Model:     model,
		Optimizer: optData,
		Iteration: int(iter),
		Epoch:     int(epoch),
	}, nil
}

// Restore loads the saved optimizer state into opt.
// An unbound Adam optimizer is first bound to the
// parameters of c.Model.
func (c *Checkpoint) Restore(opt anysgd.TransformMarshaler) error {
	bindVars(opt, c.Model)
	if len(c.Optimizer) == 0 {
		return nil
	}
	if err := opt.UnmarshalBinary(c.Optimizer); err != nil {
		return essentials.AddCtx("restore checkpoint", err)
	}
	return nil
}

// SerializerType returns the unique ID used to serialize
// a Checkpoint with the serializer package.
func (c *Checkpoint) SerializerType() string {
	return "github.com/unixpickle/anyner/anytrain.Checkpoint"
}

// Serialize serializes the Checkpoint.
// The model must be a serializer.Serializer.
func (c *Checkpoint) Serialize() ([]byte, error) {
	s, ok := c.Model.(serializer.Serializer)
	if !ok {
		return nil, fmt.Errorf("serialize Checkpoint: not a Serializer: %T", c.Model)
	}
	modelData, err := serializer.SerializeWithType(s)
	if err != nil {
		return nil, essentials.AddCtx("serialize Checkpoint", err)
	}
	return serializer.SerializeAny(
		serializer.Bytes(modelData),
		serializer.Bytes(c.Optimizer),
		serializer.Int(c.Iteration),
		serializer.Int(c.Epoch),
	)
}

// CheckpointPath returns the file name used for the
// snapshot taken at the given iteration.
func CheckpointPath(dir string, iteration int) string {
	return filepath.Join(dir, fmt.Sprintf("model_iter_%d", iteration))
}

// SaveCheckpoint writes a checkpoint to a file.
func SaveCheckpoint(path string, c *Checkpoint) error {
	if err := serializer.SaveAny(path, c); err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	var res *Checkpoint
	if err := serializer.LoadAny(path, &res); err != nil {
		return nil, essentials.AddCtx("load checkpoint", err)
	}
	return res, nil
}
