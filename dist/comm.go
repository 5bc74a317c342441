// Package dist provides the rank-to-rank communication used after the
// reduced system is solved: tagged point-to-point exchange, a small
// allgather collective, ghost-value synchronization, and the distributed
// backsubstitution that recovers slave values from remotely owned masters.
package dist

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Comm is a reliable, MPI-like communicator. Send is buffered and
// never blocks; Recv blocks until a message with the given source and tag
// arrives. AllGather is a collective every rank must enter.
type Comm interface {
	Rank() int
	Size() int
	Send(dest, tag int, data []float64) error
	Recv(source, tag int) ([]float64, error)
	AllGather(v int) ([]int, error)
}

type packet struct {
	tag  int
	data []float64
}

// mailbox is an unbounded buffered message queue for one (src, dst) pair.
type mailbox struct {
	mu   sync.Mutex
	cond *sync.Cond
	msgs []packet
}

func newMailbox() *mailbox {
	mb := &mailbox{}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *mailbox) put(p packet) {
	mb.mu.Lock()
	mb.msgs = append(mb.msgs, p)
	mb.mu.Unlock()
	mb.cond.Broadcast()
}

func (mb *mailbox) take(tag int) []float64 {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for {
		for i, p := range mb.msgs {
			if p.tag == tag {
				mb.msgs = append(mb.msgs[:i], mb.msgs[i+1:]...)
				return p.data
			}
		}
		mb.cond.Wait()
	}
}

// world is the shared state of an in-process communicator group.
type world struct {
	size  int
	boxes [][]*mailbox // [src][dst]

	mu      sync.Mutex
	cond    *sync.Cond
	gen     int
	arrived int
	vals    []int
	results map[int][]int
	readers map[int]int
}

type localComm struct {
	w    *world
	rank int
}

// NewLocalComms creates an in-process communicator group of the given size,
// one Comm per rank, exchanging through shared memory. It stands in for an
// MPI transport in tests and single-machine runs.
func NewLocalComms(size int) ([]Comm, error) {
	if size < 1 {
		return nil, fmt.Errorf("communicator size %d must be positive", size)
	}
	w := &world{
		size:    size,
		boxes:   make([][]*mailbox, size),
		vals:    make([]int, size),
		results: make(map[int][]int),
		readers: make(map[int]int),
	}
	w.cond = sync.NewCond(&w.mu)
	for s := 0; s < size; s++ {
		w.boxes[s] = make([]*mailbox, size)
		for d := 0; d < size; d++ {
			w.boxes[s][d] = newMailbox()
		}
	}
	comms := make([]Comm, size)
	for r := 0; r < size; r++ {
		comms[r] = &localComm{w: w, rank: r}
	}
	return comms, nil
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.w.size }

func (c *localComm) Send(dest, tag int, data []float64) error {
	if dest < 0 || dest >= c.w.size {
		return fmt.Errorf("send: destination rank %d out of range", dest)
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	c.w.boxes[c.rank][dest].put(packet{tag: tag, data: buf})
	return nil
}

func (c *localComm) Recv(source, tag int) ([]float64, error) {
	if source < 0 || source >= c.w.size {
		return nil, fmt.Errorf("recv: source rank %d out of range", source)
	}
	return c.w.boxes[source][c.rank].take(tag), nil
}

func (c *localComm) AllGather(v int) ([]int, error) {
	w := c.w
	w.mu.Lock()
	defer w.mu.Unlock()

	gen := w.gen
	w.vals[c.rank] = v
	w.arrived++
	if w.arrived == w.size {
		snapshot := make([]int, w.size)
		copy(snapshot, w.vals)
		w.results[gen] = snapshot
		w.arrived = 0
		w.gen++
		w.cond.Broadcast()
	} else {
		for w.results[gen] == nil {
			w.cond.Wait()
		}
	}

	out := w.results[gen]
	w.readers[gen]++
	if w.readers[gen] == w.size {
		delete(w.results, gen)
		delete(w.readers, gen)
	}
	return out, nil
}

// RunRanks runs fn concurrently on every rank of a fresh local communicator
// group and waits for all of them, returning the first error.
func RunRanks(size int, fn func(c Comm) error) error {
	comms, err := NewLocalComms(size)
	if err != nil {
		return err
	}
	var g errgroup.Group
	for r := 0; r < size; r++ {
		c := comms[r]
		g.Go(func() error { return fn(c) })
	}
	return g.Wait()
}

// exchangeCounts tells every rank how many messages to expect: countTo[r]
// is the number this rank will send to rank r; the return value gives, per
// source rank, the number that source will send here.
func exchangeCounts(c Comm, countTo []int) ([]int, error) {
	var expected []int
	for r := 0; r < c.Size(); r++ {
		row, err := c.AllGather(countTo[r])
		if err != nil {
			return nil, err
		}
		if r == c.Rank() {
			expected = row
		}
	}
	return expected, nil
}
