package cache

// List is an intrusive doubly linked list over Object records
// (head = most recently admitted or promoted, tail = next victim).
// Several independent lists may coexist; a record belongs to at most one.
//
// The zero value is an empty list ready to use.
type List struct {
	head *Object
	tail *Object
	n    int
}

// Len returns the number of members.
func (l *List) Len() int { return l.n }

// Front returns the head record (nil if empty).
func (l *List) Front() *Object { return l.head }

// Back returns the tail record (nil if empty).
func (l *List) Back() *Object { return l.tail }

// Next returns the member after o, walking head to tail.
func (l *List) Next(o *Object) *Object { return o.next }

// Prev returns the member before o.
func (l *List) Prev(o *Object) *Object { return o.prev }

// Contains reports whether o is a member of l.
func (l *List) Contains(o *Object) bool { return o.list == l }

// PushFront links o at the head. o must not be linked anywhere.
func (l *List) PushFront(o *Object) {
	l.mustBeFree(o)
	o.list = l
	o.prev = nil
	o.next = l.head
	if l.head != nil {
		l.head.prev = o
	}
	l.head = o
	if l.tail == nil {
		l.tail = o
	}
	l.n++
}

// PushBack links o at the tail. o must not be linked anywhere.
func (l *List) PushBack(o *Object) {
	l.mustBeFree(o)
	o.list = l
	o.next = nil
	o.prev = l.tail
	if l.tail != nil {
		l.tail.next = o
	}
	l.tail = o
	if l.head == nil {
		l.head = o
	}
	l.n++
}

// MoveToFront promotes a member to the head in O(1).
func (l *List) MoveToFront(o *Object) {
	l.mustContain(o)
	if l.head == o {
		return
	}
	l.unlink(o)
	o.prev = nil
	o.next = l.head
	l.head.prev = o
	l.head = o
}

// MoveToBack demotes a member to the tail in O(1).
func (l *List) MoveToBack(o *Object) {
	l.mustContain(o)
	if l.tail == o {
		return
	}
	l.unlink(o)
	o.next = nil
	o.prev = l.tail
	l.tail.next = o
	l.tail = o
}

// Remove detaches a member. Removing the sole member leaves the list empty.
func (l *List) Remove(o *Object) {
	l.mustContain(o)
	l.unlink(o)
	o.prev, o.next, o.list = nil, nil, nil
	l.n--
}

// unlink splices o out of the chain without touching o's own links or n.
func (l *List) unlink(o *Object) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
}

func (l *List) mustBeFree(o *Object) {
	if o.list != nil {
		panic("cache: object is already linked in a list")
	}
}

func (l *List) mustContain(o *Object) {
	if o.list != l {
		panic("cache: object is not a member of this list")
	}
}
