// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pool

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// sweepFactor scales how many queues a submission or an idle worker probes
// before falling back to blocking on its own queue.
const sweepFactor = 2

// Task is one unit of work. Tasks run to completion; there is no
// cancellation.
type Task func()

// Pool is a fixed-size work-stealing scheduler: one goroutine and one queue
// per worker. Submissions round-robin across queues with a try-push sweep;
// idle workers steal from their neighbors' queues before parking on their
// own.
type Pool struct {
	queues  []*BlockingQueue[Task]
	count   int
	index   atomic.Uint64
	workers sync.WaitGroup
	pending sync.WaitGroup
}

// New starts a pool of the given size. A non-positive size defaults to the
// CPU count.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		queues: make([]*BlockingQueue[Task], size),
		count:  size,
	}
	for i := range p.queues {
		p.queues[i] = NewBlockingQueue[Task](DefaultQueueCapacity)
	}
	for i := 0; i < size; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}
	zap.L().Debug("started worker pool", zap.Int("size", size))
	return p
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.count
}

// Submit enqueues a task. The submission sweeps try-push over count*K
// queues starting at the round-robin cursor and falls back to a blocking
// push on its home queue.
func (p *Pool) Submit(task Task) {
	p.pending.Add(1)
	wrapped := func() {
		defer p.pending.Done()
		task()
	}

	i := int(p.index.Inc() - 1)
	for n := 0; n < p.count*sweepFactor; n++ {
		if p.queues[(i+n)%p.count].TryPush(wrapped) {
			return
		}
	}
	p.queues[i%p.count].Push(wrapped)
}

// Wait blocks until every submitted task has completed. This is the
// generation barrier of the optimizer.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close marks every queue done and joins the workers. Queued work is
// drained before the workers exit.
func (p *Pool) Close() {
	for _, q := range p.queues {
		q.Done()
	}
	p.workers.Wait()
}

// worker is the steal loop for worker j: sweep try-pop over count*K queues
// starting at its own, then block on its own queue.
func (p *Pool) worker(j int) {
	defer p.workers.Done()
	for {
		var task Task
		for n := 0; n < p.count*sweepFactor; n++ {
			if t, ok := p.queues[(j+n)%p.count].TryPop(); ok {
				task = t
				break
			}
		}
		if task == nil {
			t, ok := p.queues[j].Pop()
			if !ok {
				return
			}
			task = t
		}
		task()
	}
}
