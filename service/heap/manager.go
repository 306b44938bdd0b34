package heap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// Pointer addresses an allocation as the byte offset of its payload within
// the arena. The zero value never refers to a valid allocation.
type Pointer int32

// Nil is the null allocation pointer.
const Nil Pointer = 0

const (
	// headerSize is the per-block bookkeeping overhead: a link to the next
	// free block and the total block size, both int32 offsets.
	headerSize = 8
	alignment  = 8

	endOfList = int32(-1)
	// allocated marks the link field of a block that is currently handed
	// out, so that Free can detect double frees and stray pointers.
	allocated = int32(-2)
)

var (
	// ErrOutOfMemory indicates no free block can satisfy the request.
	ErrOutOfMemory = errors.New("heap: out of memory")
	// ErrInvalidSize indicates a non-positive allocation size.
	ErrInvalidSize = errors.New("heap: invalid allocation size")
	// ErrBadPointer indicates a pointer that does not refer to a live
	// allocation from this arena.
	ErrBadPointer = errors.New("heap: bad pointer")
)

// Manager owns a fixed arena and serves allocations from an address-ordered
// singly linked free list, merging address-adjacent free blocks on release.
// A single lock serialises all access; there is no per-size-class sharding.
type Manager struct {
	mu        sync.Mutex
	arena     []byte
	free      int32 // offset of the first free block, endOfList when exhausted
	freeBytes int
	minFree   int
}

// New creates a manager over an arena of the given size. The size is rounded
// down to the platform alignment; sizes too small to hold a single block are
// rejected.
func New(size int) (*Manager, error) {
	size -= size % alignment
	if size < headerSize*2 {
		return nil, fmt.Errorf("heap: arena size %d too small", size)
	}
	m := &Manager{
		arena:     make([]byte, size),
		free:      0,
		freeBytes: size,
		minFree:   size,
	}
	m.setNext(0, endOfList)
	m.setSize(0, int32(size))
	return m, nil
}

// Allocate reserves size usable bytes and returns a pointer to the payload.
// The request is padded to the platform alignment plus the header size. The
// scan is first fit over the address-ordered free list; a located block is
// split when the remainder exceeds twice the header size.
func (m *Manager) Allocate(size int) (Pointer, error) {
	if size <= 0 {
		return Nil, ErrInvalidSize
	}
	need := int32(size) + headerSize
	if rem := need % alignment; rem != 0 {
		need += alignment - rem
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := endOfList
	cur := m.free
	for cur != endOfList {
		curSize := m.size(cur)
		if curSize >= need {
			next := m.next(cur)
			if curSize > need+headerSize*2 {
				// Split: the remainder becomes a new free node.
				split := cur + need
				m.setNext(split, next)
				m.setSize(split, curSize-need)
				m.setSize(cur, need)
				next = split
			}
			if prev == endOfList {
				m.free = next
			} else {
				m.setNext(prev, next)
			}
			m.setNext(cur, allocated)
			m.freeBytes -= int(m.size(cur))
			if m.freeBytes < m.minFree {
				m.minFree = m.freeBytes
			}
			return Pointer(cur + headerSize), nil
		}
		prev = cur
		cur = m.next(cur)
	}
	return Nil, ErrOutOfMemory
}

// Free returns an allocation to the free list, reinserting it in address
// order and coalescing with the address-adjacent predecessor and successor.
func (m *Manager) Free(p Pointer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, err := m.blockOf(p)
	if err != nil {
		return err
	}
	size := m.size(block)
	m.freeBytes += int(size)

	// Locate insertion point, keeping the list sorted by ascending offset.
	prev := endOfList
	cur := m.free
	for cur != endOfList && cur < block {
		prev = cur
		cur = m.next(cur)
	}
	m.setNext(block, cur)
	if prev == endOfList {
		m.free = block
	} else {
		m.setNext(prev, block)
	}

	// Coalesce with the successor, then with the predecessor. Adjacency is
	// checked by offset arithmetic, not by scanning.
	if cur != endOfList && block+size == cur {
		m.setSize(block, size+m.size(cur))
		m.setNext(block, m.next(cur))
	}
	if prev != endOfList && prev+m.size(prev) == block {
		m.setSize(prev, m.size(prev)+m.size(block))
		m.setNext(prev, m.next(block))
	}
	return nil
}

// Bytes returns the usable payload of a live allocation.
func (m *Manager) Bytes(p Pointer) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	block, err := m.blockOf(p)
	if err != nil {
		return nil, err
	}
	return m.arena[block+headerSize : block+m.size(block)], nil
}

// FreeBytes returns the total number of bytes currently on the free list,
// including block headers.
func (m *Manager) FreeBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.freeBytes
}

// MinEverFreeBytes returns the low-water mark of the free byte count.
func (m *Manager) MinEverFreeBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minFree
}

// Size returns the arena size in bytes.
func (m *Manager) Size() int {
	return len(m.arena)
}

func (m *Manager) blockOf(p Pointer) (int32, error) {
	block := int32(p) - headerSize
	if block < 0 || block%alignment != 0 || int(block)+headerSize > len(m.arena) {
		return 0, ErrBadPointer
	}
	if m.next(block) != allocated {
		return 0, ErrBadPointer
	}
	size := m.size(block)
	if size < headerSize || int(block+size) > len(m.arena) {
		return 0, ErrBadPointer
	}
	return block, nil
}

func (m *Manager) freeBlockCount() int {
	count := 0
	for cur := m.free; cur != endOfList; cur = m.next(cur) {
		count++
	}
	return count
}

func (m *Manager) next(block int32) int32 {
	return int32(binary.LittleEndian.Uint32(m.arena[block:]))
}

func (m *Manager) setNext(block, next int32) {
	binary.LittleEndian.PutUint32(m.arena[block:], uint32(next))
}

func (m *Manager) size(block int32) int32 {
	return int32(binary.LittleEndian.Uint32(m.arena[block+4:]))
}

func (m *Manager) setSize(block, size int32) {
	binary.LittleEndian.PutUint32(m.arena[block+4:], uint32(size))
}
