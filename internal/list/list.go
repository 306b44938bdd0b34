// Package list provides a generic doubly linked list used for the kernel's
// ready, delayed, suspended and wait queues. Insertion, front removal and
// traversal are O(1) / O(n); removal by value is O(n) which is acceptable for
// the bounded queue lengths the kernel operates on.
//
// The list performs no internal locking; the kernel serialises access under
// its own lock.
package list

type node[T comparable] struct {
	item T
	next *node[T]
	prev *node[T]
}

// List is a doubly linked FIFO of comparable items.
type List[T comparable] struct {
	head  *node[T]
	tail  *node[T]
	count int
}

// New returns an empty list.
func New[T comparable]() *List[T] {
	return &List[T]{}
}

// PushBack appends item to the end of the list.
func (l *List[T]) PushBack(item T) {
	n := &node[T]{item: item, prev: l.tail}
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.count++
}

// PushFront prepends item to the front of the list.
func (l *List[T]) PushFront(item T) {
	n := &node[T]{item: item, next: l.head}
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.count++
}

// PopFront removes and returns the first item; ok is false when the list is
// empty.
func (l *List[T]) PopFront() (item T, ok bool) {
	if l.head == nil {
		return item, false
	}
	n := l.head
	l.unlink(n)
	return n.item, true
}

// Front returns the first item without removing it.
func (l *List[T]) Front() (item T, ok bool) {
	if l.head == nil {
		return item, false
	}
	return l.head.item, true
}

// Remove removes the first occurrence of item, returning true when found.
func (l *List[T]) Remove(item T) bool {
	for n := l.head; n != nil; n = n.next {
		if n.item == item {
			l.unlink(n)
			return true
		}
	}
	return false
}

// Contains reports whether item is present.
func (l *List[T]) Contains(item T) bool {
	for n := l.head; n != nil; n = n.next {
		if n.item == item {
			return true
		}
	}
	return false
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	return l.count
}

// ForEach applies fn to every item in order.
func (l *List[T]) ForEach(fn func(item T)) {
	for n := l.head; n != nil; n = n.next {
		fn(n.item)
	}
}

func (l *List[T]) unlink(n *node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.next, n.prev = nil, nil
	l.count--
}
