package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-shelves/models"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter receives batches of exported reading records.
type OutputWriter interface {
	Write(records []*models.UserBook) error
	Close() error
	Validate() error
}

// Pipeline validates, de-duplicates and batches reading records into an
// OutputWriter. With a single worker records keep their submission order.
type Pipeline struct {
	writer    OutputWriter
	recordCh  chan *models.UserBook
	batchSize int

	wg sync.WaitGroup

	seen   map[string]struct{}
	seenMu sync.Mutex

	counts counts

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing batches of batchSize records.
func NewPipeline(writer OutputWriter, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		writer:    writer,
		recordCh:  make(chan *models.UserBook, 4*batchSize),
		batchSize: batchSize,
		seen:      make(map[string]struct{}),
		counts:    counts{rejected: make(map[string]int)},
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records for writing.
func (p *Pipeline) Process(records []*models.UserBook) error {
	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, ub := range records {
		if ub == nil {
			continue
		}
		if err := p.enqueue(ub); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to drain and prevents more submissions. It does
// not close the writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Written returns how many records reached the writer.
func (p *Pipeline) Written() int {
	return p.counts.writtenTotal()
}

// Rejected returns rejected record counts keyed by reason.
func (p *Pipeline) Rejected() map[string]int {
	return p.counts.rejectedSnapshot()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.UserBook, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.counts.addWritten(len(batch))
		batch = batch[:0]
		return nil
	}

	for ub := range p.recordCh {
		if !p.accept(ub) {
			continue
		}
		batch = append(batch, ub)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) accept(ub *models.UserBook) bool {
	switch {
	case ub.Book == nil:
		p.counts.reject("missing_book")
		return false
	case ub.Book.Title == "":
		p.counts.reject("missing_title")
		return false
	}

	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	if _, ok := p.seen[ub.ID]; ok {
		p.counts.reject("duplicate_record")
		return false
	}
	p.seen[ub.ID] = struct{}{}
	return true
}

func (p *Pipeline) enqueue(ub *models.UserBook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.recordCh <- ub:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type counts struct {
	mu       sync.Mutex
	written  int
	rejected map[string]int
}

func (c *counts) addWritten(n int) {
	c.mu.Lock()
	c.written += n
	c.mu.Unlock()
}

func (c *counts) reject(reason string) {
	c.mu.Lock()
	c.rejected[reason]++
	c.mu.Unlock()
}

func (c *counts) writtenTotal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *counts) rejectedSnapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int, len(c.rejected))
	for k, v := range c.rejected {
		out[k] = v
	}
	return out
}
