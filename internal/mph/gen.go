package mph

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

const saltAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// trialsPerSize bounds salt retries before the displacement array grows.
const trialsPerSize = 64

// Generate builds a table over keys using the CHM acyclic-graph method:
// random salts are drawn until the bipartite key graph is acyclic, then
// displacements are assigned so every key lands on its own index. The same
// seed always yields the same table. Sets below Threshold get a linear table.
func Generate(keys []string, seed uint64) (Table, error) {
	if err := checkKeys(keys); err != nil {
		return Table{}, err
	}
	stored := slices.Clone(keys)
	if len(keys) < Threshold {
		return Table{Keys: stored}, nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	saltLen := 0
	for _, k := range keys {
		saltLen = max(saltLen, len(k))
	}

	for ng := 2*len(keys) + 1; ; ng += len(keys)/4 + 1 {
		for trial := 0; trial < trialsPerSize; trial++ {
			salt1 := randomSalt(rng, saltLen)
			salt2 := randomSalt(rng, saltLen)
			g, ok := assign(keys, salt1, salt2, ng)
			if !ok {
				continue
			}
			t := Table{Salt1: salt1, Salt2: salt2, G: g, Keys: stored}
			for want, k := range keys {
				if t.Lookup(k) != want {
					return Table{}, fmt.Errorf("mph: self-check failed for key %q", k)
				}
			}
			return t, nil
		}
	}
}

func checkKeys(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("mph: empty key set")
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("mph: duplicate key %q", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func randomSalt(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = saltAlphabet[rng.IntN(len(saltAlphabet))]
	}
	return string(b)
}

type edge struct {
	to  int32
	key int32
}

// assign builds the key graph for one salt pair and, if it is acyclic,
// returns displacements with (g[u]+g[v]) mod ng equal to each key's index.
func assign(keys []string, salt1, salt2 string, ng int) ([]int32, bool) {
	adj := make([][]edge, ng)
	for i, k := range keys {
		u, v := vertices(k, salt1, salt2, ng)
		if u == v {
			return nil, false
		}
		adj[u] = append(adj[u], edge{to: int32(v), key: int32(i)})
		adj[v] = append(adj[v], edge{to: int32(u), key: int32(i)})
	}

	g := make([]int32, ng)
	visited := make([]bool, ng)
	edgeSeen := make([]bool, len(keys))

	type item struct{ vertex int32 }
	var stack []item
	for start := range ng {
		if visited[start] || len(adj[start]) == 0 {
			continue
		}
		visited[start] = true
		stack = append(stack[:0], item{vertex: int32(start)})
		for len(stack) > 0 {
			u := stack[len(stack)-1].vertex
			stack = stack[:len(stack)-1]
			for _, e := range adj[u] {
				if edgeSeen[e.key] {
					continue
				}
				edgeSeen[e.key] = true
				if visited[e.to] {
					// revisiting a vertex over a fresh edge means a cycle
					return nil, false
				}
				visited[e.to] = true
				g[e.to] = int32((((int(e.key) - int(g[u])) % ng) + ng) % ng)
				stack = append(stack, item{vertex: e.to})
			}
		}
	}
	return g, true
}

func vertices(key, salt1, salt2 string, ng int) (int, int) {
	f1, f2 := 0, 0
	for i := 0; i < len(key) && i < len(salt1); i++ {
		f1 += int(salt1[i]) * int(key[i])
		f2 += int(salt2[i]) * int(key[i])
	}
	return f1 % ng, f2 % ng
}
