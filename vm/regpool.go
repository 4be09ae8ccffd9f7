package vm

import "fmt"

// RegPool hands out register slots for one storage class. Handles of
// width > 1 occupy contiguous slots. The pool tracks the outstanding
// lease count so emission can assert that every temporary was returned.
type RegPool struct {
	used        []bool
	mostUsed    int
	outstanding int
}

// Alloc leases width contiguous slots and returns the first slot
// number.
func (p *RegPool) Alloc(width int) int {
	if width < 1 {
		panic("register width must be at least 1")
	}
	start := 0
search:
	for {
		for i := 0; i < width; i++ {
			for start+i >= len(p.used) {
				p.used = append(p.used, false)
			}
			if p.used[start+i] {
				start = start + i + 1
				continue search
			}
		}
		break
	}
	for i := 0; i < width; i++ {
		p.used[start+i] = true
	}
	if start+width > p.mostUsed {
		p.mostUsed = start + width
	}
	p.outstanding += width
	return start
}

// Free returns slots to the pool. Freeing a slot twice is a bug in the
// caller's register discipline.
func (p *RegPool) Free(start, width int) {
	for i := 0; i < width; i++ {
		if start+i >= len(p.used) || !p.used[start+i] {
			panic(fmt.Sprintf("register %d freed twice", start+i))
		}
		p.used[start+i] = false
	}
	p.outstanding -= width
}

// Reuse re-leases a single previously freed slot.
func (p *RegPool) Reuse(start int) {
	if start >= len(p.used) || p.used[start] {
		panic(fmt.Sprintf("register %d cannot be reused while leased", start))
	}
	p.used[start] = true
	p.outstanding++
}

// Outstanding is the number of currently leased slots.
func (p *RegPool) Outstanding() int { return p.outstanding }

// MostUsed is the high-water mark, i.e. the register file size the
// compiled function needs.
func (p *RegPool) MostUsed() int { return p.mostUsed }
