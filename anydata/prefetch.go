package anydata

import "github.com/unixpickle/anyner"

type fetchResult struct {
	Batch      *anyner.Batch
	Err        error
	Epoch      int
	IsNewEpoch bool
	Detail     float64
}

// A Prefetcher wraps a Source and fetches the following
// batch in the background while the current one is being
// used.
//
// The epoch counters of a Prefetcher describe the last
// batch it returned, not the state of the wrapped Source.
// The wrapped Source must not be used directly while the
// Prefetcher is in use.
type Prefetcher struct {
	Source Source

	pending chan fetchResult
	last    fetchResult
}

// Next returns the next batch and starts fetching the one
// after it.
func (p *Prefetcher) Next() (*anyner.Batch, error) {
	if p.pending == nil {
		p.pending = p.fetch()
	}
	res := <-p.pending
	if res.Err != nil {
		p.pending = nil
		return nil, res.Err
	}
	p.last = res
	p.pending = p.fetch()
	return res.Batch, nil
}

// Epoch returns the epoch after the last batch.
func (p *Prefetcher) Epoch() int {
	return p.last.Epoch
}

// IsNewEpoch reports whether the last batch ended a pass.
func (p *Prefetcher) IsNewEpoch() bool {
	return p.last.IsNewEpoch
}

// EpochDetail returns the fractional epoch after the last
// batch.
func (p *Prefetcher) EpochDetail() float64 {
	return p.last.Detail
}

// Close waits for any background fetch to finish.
// The prefetched batch is discarded.
func (p *Prefetcher) Close() {
	if p.pending != nil {
		<-p.pending
		p.pending = nil
	}
}

func (p *Prefetcher) fetch() chan fetchResult {
	res := make(chan fetchResult, 1)
	go func() {
		batch, err := p.Source.Next()
		res <- fetchResult{
			Batch:      batch,
			Err:        err,
			Epoch:      p.Source.Epoch(),
			IsNewEpoch: p.Source.IsNewEpoch(),
			Detail:     p.Source.EpochDetail(),
		}
	}()
	return res
}
