// Package ilist provides the intrusive linked list toolkit spec §2 calls
// for: typed sequences used throughout the AST and IR (statement lists,
// symbol lists, operand/target lists) that support both forward and
// reverse iteration (spec §9 "a systems-language implementation may
// substitute contiguous arrays... provided the iterator interface... is
// preserved"). Nodes are separate from payloads (a *Link[T] per element)
// rather than embedded fields, which is the idiomatic Go rendition of an
// intrusive list when the payload type is shared across several lists.
package ilist

// Link is one node of a List.
type Link[T any] struct {
	prev, next *Link[T]
	owner      *List[T]
	Value      T
}

// Next returns the following link, or nil at the tail.
func (e *Link[T]) Next() *Link[T] {
	if e == nil {
		return nil
	}
	return e.next
}

// Prev returns the preceding link, or nil at the head.
func (e *Link[T]) Prev() *Link[T] {
	if e == nil {
		return nil
	}
	return e.prev
}

// List is an ordered, doubly-linked sequence of T.
type List[T any] struct {
	head, tail *Link[T]
	n          int
}

// Len returns the number of elements.
func (l *List[T]) Len() int { return l.n }

// Front returns the first link, or nil if empty.
func (l *List[T]) Front() *Link[T] { return l.head }

// Back returns the last link, or nil if empty.
func (l *List[T]) Back() *Link[T] { return l.tail }

// PushBack appends v and returns its link.
func (l *List[T]) PushBack(v T) *Link[T] {
	e := &Link[T]{Value: v, owner: l}
	if l.tail == nil {
		l.head, l.tail = e, e
	} else {
		e.prev = l.tail
		l.tail.next = e
		l.tail = e
	}
	l.n++
	return e
}

// PushFront prepends v and returns its link.
func (l *List[T]) PushFront(v T) *Link[T] {
	e := &Link[T]{Value: v, owner: l}
	if l.head == nil {
		l.head, l.tail = e, e
	} else {
		e.next = l.head
		l.head.prev = e
		l.head = e
	}
	l.n++
	return e
}

// Remove unlinks e from l. e must belong to l.
func (l *List[T]) Remove(e *Link[T]) {
	if e == nil || e.owner != l {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next, e.owner = nil, nil, nil
	l.n--
}

// Each calls fn for every element, head to tail.
func (l *List[T]) Each(fn func(v T)) {
	for e := l.head; e != nil; e = e.next {
		fn(e.Value)
	}
}

// EachReverse calls fn for every element, tail to head.
func (l *List[T]) EachReverse(fn func(v T)) {
	for e := l.tail; e != nil; e = e.prev {
		fn(e.Value)
	}
}

// Slice materializes the list head-to-tail. Used by accessor layers
// (astwalk/irwalk) that want a plain slice for range loops.
func (l *List[T]) Slice() []T {
	out := make([]T, 0, l.n)
	l.Each(func(v T) { out = append(out, v) })
	return out
}
