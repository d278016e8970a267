// This file is part of Magpie2600.
//
// Magpie2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Magpie2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Magpie2600.  If not, see <https://www.gnu.org/licenses/>.

package audio

import "sync"

// Queue is a bounded FIFO of audio fragments. One producer (the emulation
// loop) and one consumer (the device callback) are supported. Neither
// Enqueue() nor Dequeue() ever blocks.
//
// The critical section protects nothing more than a handful of index
// updates so the consumer is never held up for longer than the producer
// takes to swap two slice headers.
type Queue struct {
	format   Format
	capacity int

	crit sync.Mutex

	// fragments ready for the consumer, in enqueue order. queue[next] is the
	// oldest. the ring holds at most capacity fragments
	queue [][]float32
	next  int
	size  int

	// buffers not currently queued and not held by either side
	free [][]float32

	// drop fragments silently on overflow rather than reporting it. used
	// when audio output is disabled but the emulation must still run at full
	// speed
	ignoreOverflow bool

	overflows int
}

// NewQueue is the preferred method of initialisation for the Queue type.
// capacity is measured in fragments.
//
// Two spare buffers are allocated in addition to the queue capacity: one for
// the fragment being filled by the producer and one for the fragment being
// read by the consumer.
func NewQueue(format Format, capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}

	q := &Queue{
		format:   format,
		capacity: capacity,
		queue:    make([][]float32, capacity),
		free:     make([][]float32, 0, capacity+2),
	}

	for i := 0; i < capacity+2; i++ {
		q.free = append(q.free, make([]float32, format.SamplesPerFragment()))
	}

	return q
}

// Format of the fragments travelling through the queue.
func (q *Queue) Format() Format {
	return q.format
}

// Capacity of the queue in fragments.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Enqueue swaps a filled fragment for an empty one. The returned buffer is
// for the producer to fill and pass to the next call to Enqueue(). Passing
// nil retrieves the very first buffer without queueing anything.
//
// The returned boolean is false if an overflow occurred. When overflows are
// being ignored the fragment is silently dropped (the newest data is lost).
// Otherwise the oldest queued fragment is discarded to make room, keeping
// latency bounded, and the producer can use the false return to pace itself.
// Enqueue never blocks in either mode.
func (q *Queue) Enqueue(fragment []float32) ([]float32, bool) {
	q.crit.Lock()
	defer q.crit.Unlock()

	if fragment == nil {
		return q.takeFree(), true
	}

	if q.size == q.capacity {
		q.overflows++

		if q.ignoreOverflow {
			// reuse the producer's own buffer. nothing else changes
			return fragment, false
		}

		// drop the oldest fragment. its buffer returns to the pool
		q.free = append(q.free, q.queue[q.next])
		q.next = (q.next + 1) % q.capacity
		q.size--

		q.queue[(q.next+q.size)%q.capacity] = fragment
		q.size++

		return q.takeFree(), false
	}

	q.queue[(q.next+q.size)%q.capacity] = fragment
	q.size++

	return q.takeFree(), true
}

// Dequeue returns the oldest queued fragment, or nil if the queue is empty.
// The fragment returned by the last successful Dequeue() must be handed back
// as the previous argument so that its buffer can be reused.
//
// If the queue is empty, previous is not released: the consumer retains
// ownership of it and may continue reading from it until a later Dequeue()
// succeeds.
//
// Called only from the device callback. Never blocks.
func (q *Queue) Dequeue(previous []float32) []float32 {
	q.crit.Lock()
	defer q.crit.Unlock()

	if q.size == 0 {
		return nil
	}

	if previous != nil {
		q.free = append(q.free, previous)
	}

	f := q.queue[q.next]
	q.queue[q.next] = nil
	q.next = (q.next + 1) % q.capacity
	q.size--

	return f
}

// Release returns the fragment obtained from the last successful Dequeue()
// to the buffer pool without dequeueing another. It must be called when the
// consumer is discarded while still holding a fragment, otherwise the pool
// is one buffer short for the rest of the queue's life.
//
// The caller must guarantee that no Dequeue() is in flight.
func (q *Queue) Release(fragment []float32) {
	if fragment == nil {
		return
	}

	q.crit.Lock()
	defer q.crit.Unlock()
	q.free = append(q.free, fragment)
}

// Size is the number of fragments ready for Dequeue(). The value is stale
// the moment it is returned and is only suitable for heuristics, such as the
// prebuffering policy in the sound package.
func (q *Queue) Size() int {
	q.crit.Lock()
	defer q.crit.Unlock()
	return q.size
}

// Overflows returns the number of fragments lost to overflow since the queue
// was created.
func (q *Queue) Overflows() int {
	q.crit.Lock()
	defer q.crit.Unlock()
	return q.overflows
}

// IgnoreOverflows controls the overflow policy. See Enqueue().
func (q *Queue) IgnoreOverflows(ignore bool) {
	q.crit.Lock()
	defer q.crit.Unlock()
	q.ignoreOverflow = ignore
}

// takeFree must be called with the critical section locked. the buffer
// accounting guarantees the free list is never empty at this point: capacity
// fragments can be queued and one buffer held by each side, which is exactly
// the number allocated.
func (q *Queue) takeFree() []float32 {
	f := q.free[len(q.free)-1]
	q.free = q.free[:len(q.free)-1]
	return f
}
