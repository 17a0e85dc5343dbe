// Package workerpool runs a fixed number of goroutines pulling work
// off a shared channel, supervised by a tomb so the pool shuts down
// cleanly with the rest of the server. Each worker loops on the task
// channel directly, so no active-worker bookkeeping is needed.
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 100

// WorkerFunction is the unit of work a pool executes per task.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// Pool is a fixed-size set of workers draining a shared task channel.
type Pool struct {
	n     int
	tasks chan any
}

// New creates a pool with size workers and the default task backlog.
func New(size int) Pool {
	return Pool{
		n:     size,
		tasks: make(chan any, defaultTaskChanSize),
	}
}

// AddTask enqueues task for some worker to pick up.
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup starts n workers under t, each running work until the tomb
// dies or work returns an error.
func (p *Pool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", p.n).Msg("starting worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, work)
		})
	}
}

func (p *Pool) worker(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
