package receiver

import "sync"

// The hook ABI identifies a bridge by an opaque sls.Context token. Rather
// than smuggling a raw pointer through that token, bridges are registered
// in this table and the token is the table key. A token that has been
// deleted (or never issued) resolves to nothing, so a hook that fires
// against a torn-down bridge is a no-op instead of a use-after-free.
var handleTable = struct {
	mu   sync.Mutex
	next uintptr
	m    map[uintptr]*Receiver
}{next: 1, m: make(map[uintptr]*Receiver)}

func newHandle(r *Receiver) uintptr {
	handleTable.mu.Lock()
	defer handleTable.mu.Unlock()
	h := handleTable.next
	handleTable.next++
	handleTable.m[h] = r
	return h
}

func lookupHandle(h uintptr) (*Receiver, bool) {
	handleTable.mu.Lock()
	defer handleTable.mu.Unlock()
	r, ok := handleTable.m[h]
	return r, ok
}

func deleteHandle(h uintptr) {
	handleTable.mu.Lock()
	defer handleTable.mu.Unlock()
	delete(handleTable.m, h)
}
