package hnsw

// pqItem is an entry in the min-heap used during layer search: the closer
// candidate sorts first.
type pqItem struct {
	nodeID   int
	distance float32
	node     *node
	index    int
}

// priorityQueue implements heap.Interface as a min-heap over distance.
type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool { return pq[i].distance < pq[j].distance }

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// maxPriorityQueue implements heap.Interface as a max-heap over distance:
// the farthest kept candidate sorts to the root. searchLayer keeps its
// accepted results in one of these so that once the set grows past ef it
// can evict the single worst (farthest) candidate in O(log ef) instead of
// the nearest one a min-heap would hand back.
type maxPriorityQueue []*pqItem

func (pq maxPriorityQueue) Len() int { return len(pq) }

func (pq maxPriorityQueue) Less(i, j int) bool { return pq[i].distance > pq[j].distance }

func (pq maxPriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *maxPriorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *maxPriorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}
