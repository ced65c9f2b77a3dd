package cache

// orderNode is an entry in a doubly-linked insertion-order list.
// The node stores its key for O(1) deletion from the parent map.
type orderNode[K comparable, V any] struct {
	key   K
	value V
	prev  *orderNode[K, V]
	next  *orderNode[K, V]
}

// orderList keeps entries oldest first.
// The list is not thread-safe; callers must handle synchronization.
type orderList[K comparable, V any] struct {
	head *orderNode[K, V]
	tail *orderNode[K, V]
	len  int
}

// Len returns the number of nodes in the list.
func (l *orderList[K, V]) Len() int {
	return l.len
}

// Front returns the oldest node, or nil for an empty list.
func (l *orderList[K, V]) Front() *orderNode[K, V] {
	return l.head
}

// PushBack appends a new node (newest) and returns it.
func (l *orderList[K, V]) PushBack(key K, value V) *orderNode[K, V] {
	node := &orderNode[K, V]{key: key, value: value}
	if l.tail == nil {
		l.head = node
		l.tail = node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}
	l.len++
	return node
}

// Remove unlinks node from the list.
func (l *orderList[K, V]) Remove(node *orderNode[K, V]) {
	if node == nil {
		return
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
