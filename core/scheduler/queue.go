package scheduler

import "github.com/kilianp07/relief/core/model"

// pendingQueue is a max-heap on priority with FIFO order among equals.
type pendingQueue []*model.EvacuationRequest

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool { return ahead(q[i], q[j]) }

func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pendingQueue) Push(x any) { *q = append(*q, x.(*model.EvacuationRequest)) }

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

func (q pendingQueue) indexOf(id string) int {
	for i, r := range q {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// ahead reports whether a is served before b.
func ahead(a, b *model.EvacuationRequest) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Seq < b.Seq
}
