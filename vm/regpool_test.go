package vm

import "testing"

func TestAllocContiguous(t *testing.T) {
	var p RegPool
	a := p.Alloc(1)
	b := p.Alloc(3)
	c := p.Alloc(1)
	if a != 0 || b != 1 || c != 4 {
		t.Fatalf("got %d,%d,%d, want 0,1,4", a, b, c)
	}
	if p.Outstanding() != 5 {
		t.Errorf("Outstanding = %d, want 5", p.Outstanding())
	}
	if p.MostUsed() != 5 {
		t.Errorf("MostUsed = %d, want 5", p.MostUsed())
	}
}

func TestFreeAndRealloc(t *testing.T) {
	var p RegPool
	a := p.Alloc(1)
	p.Alloc(1)
	p.Free(a, 1)
	if got := p.Alloc(1); got != a {
		t.Errorf("freed slot should be reallocated first, got %d", got)
	}
}

func TestContiguousSkipsHoles(t *testing.T) {
	var p RegPool
	p.Alloc(1)           // 0
	b := p.Alloc(1)      // 1
	p.Alloc(1)           // 2
	p.Free(b, 1)         // hole at 1, too narrow for width 2
	if got := p.Alloc(2); got != 3 {
		t.Errorf("width-2 alloc = %d, want 3", got)
	}
}

func TestDoubleFreePanics(t *testing.T) {
	var p RegPool
	a := p.Alloc(1)
	p.Free(a, 1)
	defer func() {
		if recover() == nil {
			t.Error("double free must panic")
		}
	}()
	p.Free(a, 1)
}

func TestReuse(t *testing.T) {
	var p RegPool
	a := p.Alloc(1)
	p.Free(a, 1)
	p.Reuse(a)
	if p.Outstanding() != 1 {
		t.Errorf("Outstanding after reuse = %d, want 1", p.Outstanding())
	}
	p.Free(a, 1)
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", p.Outstanding())
	}
}

func TestBalanceReachesZero(t *testing.T) {
	var p RegPool
	regs := make([]int, 0, 8)
	for i := 0; i < 8; i++ {
		regs = append(regs, p.Alloc(1))
	}
	for _, r := range regs {
		p.Free(r, 1)
	}
	if p.Outstanding() != 0 {
		t.Errorf("Outstanding = %d, want 0", p.Outstanding())
	}
	if p.MostUsed() != 8 {
		t.Errorf("MostUsed = %d, want 8", p.MostUsed())
	}
}
