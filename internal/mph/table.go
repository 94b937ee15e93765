// Package mph evaluates the minimal-perfect-hash name tables a schema
// compiler produces: two salted weighted checksums over the key's bytes,
// combined through a displacement array. The same formula is reproduced by
// Generate, so runtime dispatch codes stay consistent with offline tables.
package mph

// NotFound is returned for keys outside the table's key set.
const NotFound = -1

// Threshold is the minimum key-set size for which hash tables are generated.
// Smaller sets are matched by linear scan.
const Threshold = 8

// Table maps each key of a fixed finite set to a distinct small integer.
// An empty displacement array marks a linear-scan table.
type Table struct {
	Salt1 string
	Salt2 string
	G     []int32
	Keys  []string
}

// Lookup returns the dense code of key, or NotFound. It allocates nothing
// and cannot fail in any other way.
func (t *Table) Lookup(key string) int {
	if len(t.G) == 0 {
		for i, k := range t.Keys {
			if k == key {
				return i
			}
		}
		return NotFound
	}

	n := len(t.G)
	f1, f2 := 0, 0
	for i := 0; i < len(key) && i < len(t.Salt1); i++ {
		f1 += int(t.Salt1[i]) * int(key[i])
		f2 += int(t.Salt2[i]) * int(key[i])
	}
	i := (int(t.G[f1%n]) + int(t.G[f2%n])) % n
	if i < len(t.Keys) && t.Keys[i] == key {
		return i
	}
	return NotFound
}

// Len returns the key-set size.
func (t *Table) Len() int { return len(t.Keys) }
