package common

import "fmt"

type CircularQueue[T any] struct {
	items []T
	count int
	size  int
	pos   int
}

func NewCircularQueue[T any](size int) CircularQueue[T] {
	return CircularQueue[T]{
		items: make([]T, size),
		size:  size,
	}
}

func (cq *CircularQueue[T]) Push(item T) error {
	if cq.count == cq.size {
		return fmt.Errorf("queue is already populated with %d items", cq.count)
	}

	cq.items[(cq.pos+cq.count)%cq.size] = item
	cq.count++

	return nil
}

func (cq *CircularQueue[T]) Pop() T {
	var def T

	if cq.count == 0 {
		return def
	}

	result := cq.items[cq.pos]
	cq.items[cq.pos] = def
	cq.pos = (cq.pos + 1) % cq.size
	cq.count--

	return result
}

func (cq *CircularQueue[T]) Peek() T {
	if cq.count == 0 {
		var def T

		return def
	}

	return cq.items[cq.pos]
}

func (cq CircularQueue[T]) Len() int {
	return cq.count
}

func (cq CircularQueue[T]) IsFull() bool {
	return cq.count == cq.size
}

func (cq *CircularQueue[T]) ToList() []T {
	lst := make([]T, cq.count)

	for i := 0; i < cq.count; i++ {
		lst[i] = cq.items[(cq.pos+i)%cq.size]
	}

	return lst
}
