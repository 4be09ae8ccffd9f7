package types

import "sync"

// NameID is an interned symbolic name. Id 0 is always the empty name.
type NameID int

// NameNone is the empty name.
const NameNone NameID = 0

var nameTable = struct {
	sync.RWMutex
	ids  map[string]NameID
	strs []string
}{
	ids:  map[string]NameID{"": NameNone},
	strs: []string{""},
}

// InternName returns the id for s, creating it on first use. Safe for
// concurrent callers; interning the same string twice yields the same
// id.
func InternName(s string) NameID {
	nameTable.RLock()
	id, ok := nameTable.ids[s]
	nameTable.RUnlock()
	if ok {
		return id
	}
	nameTable.Lock()
	defer nameTable.Unlock()
	if id, ok = nameTable.ids[s]; ok {
		return id
	}
	id = NameID(len(nameTable.strs))
	nameTable.ids[s] = id
	nameTable.strs = append(nameTable.strs, s)
	return id
}

func (n NameID) String() string {
	nameTable.RLock()
	defer nameTable.RUnlock()
	if int(n) < len(nameTable.strs) {
		return nameTable.strs[n]
	}
	return ""
}
