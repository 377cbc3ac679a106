package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHashPoolClosed is returned for work submitted after Close.
var ErrHashPoolClosed = errors.New("hash pool closed")

// Hasher is what AuthService needs from the credential layer. HashPool
// satisfies it by running the KDF on dedicated worker goroutines.
type Hasher interface {
	Hash(ctx context.Context, password string) (Credential, error)
	Verify(ctx context.Context, password string, cred Credential) (bool, error)
	DummyCredential() Credential
}

type hashJob struct {
	name string
	run  func() error
	done chan error
}

// HashPool runs credential derivation on a fixed set of worker goroutines.
// Callers block until their job is done or their context ends.
type HashPool struct {
	hasher  *CredentialHasher
	state   *PoolState
	metrics *AuthMetrics

	jobs      chan hashJob
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHashPool starts workers goroutines. state and metrics may be nil.
func NewHashPool(hasher *CredentialHasher, workers int, state *PoolState, metrics *AuthMetrics) *HashPool {
	if workers <= 0 {
		workers = 1
	}
	p := &HashPool{
		hasher:  hasher,
		state:   state,
		metrics: metrics,
		jobs:    make(chan hashJob),
		quit:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *HashPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case job := <-p.jobs:
			if p.state != nil {
				p.state.JobStarted(job.name)
			}
			started := time.Now()
			err := job.run()
			p.metrics.observeHash(job.name, time.Since(started))
			if p.state != nil {
				p.state.JobFinished(job.name, err)
			}
			job.done <- err
		}
	}
}

// submit hands fn to a worker and waits for it. ctx only bounds the wait.
func (p *HashPool) submit(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job := hashJob{name: name, run: fn, done: make(chan error, 1)}
	select {
	case <-p.quit:
		return ErrHashPoolClosed
	default:
	}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrHashPoolClosed
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hash derives a new credential on a pool worker.
func (p *HashPool) Hash(ctx context.Context, password string) (Credential, error) {
	var cred Credential
	err := p.submit(ctx, "hash", func() error {
		var hashErr error
		cred, hashErr = p.hasher.Hash(password)
		return hashErr
	})
	if err != nil {
		return Credential{}, err
	}
	return cred, nil
}

// Verify checks password against cred on a pool worker. The error is
// non-nil only when the work could not run at all.
func (p *HashPool) Verify(ctx context.Context, password string, cred Credential) (bool, error) {
	var ok bool
	err := p.submit(ctx, "verify", func() error {
		ok = p.hasher.Verify(password, cred)
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// DummyCredential proxies CredentialHasher.DummyCredential.
func (p *HashPool) DummyCredential() Credential {
	return p.hasher.DummyCredential()
}

// Close stops the workers and waits for in-flight jobs to finish.
func (p *HashPool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
