// Package arptable implements the passive IP→MAC learning table.
//
// Bindings are learned from ARP replies and IPv6 neighbor advertisements seen
// on the wire. Last write wins, nothing expires, and nothing is authenticated:
// a spoofed reply overwrites a genuine binding. The table grows for the
// lifetime of the process.
package arptable

// Table maps textual IP addresses to textual MAC addresses.
// It is owned by the capture loop and is not safe for concurrent use.
type Table struct {
	entries map[string]string
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]string)}
}

// Put stores the binding, overwriting any previous one for ip.
func (t *Table) Put(ip, mac string) {
	t.entries[ip] = mac
}

// Get returns the MAC bound to ip.
// Returns ("", false) if ip was never observed.
func (t *Table) Get(ip string) (string, bool) {
	mac, ok := t.entries[ip]
	return mac, ok
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	return len(t.entries)
}
