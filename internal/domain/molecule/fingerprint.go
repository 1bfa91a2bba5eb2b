package molecule

import (
	"hash/fnv"
	"math/bits"
	"sort"
)

// FingerprintBits is the fixed width of structural fingerprints.
const FingerprintBits = 2048

// fingerprintRadius is the circular environment radius.
const fingerprintRadius = 2

// Fingerprint is a fixed-width bit vector encoding hashed circular atom
// environments, comparable with Tanimoto similarity.
type Fingerprint [FingerprintBits / 64]uint64

// Fingerprint computes the molecule's structural fingerprint.  Environments
// are hashed from graph-invariant atom features, so structurally identical
// molecules produce identical fingerprints regardless of input order.
func (m *Molecule) Fingerprint() Fingerprint {
	var fp Fingerprint

	// Radius-0 identifiers from atom invariants.
	ids := make([]uint64, len(m.atoms))
	for i, a := range m.atoms {
		h := fnv.New64a()
		h.Write([]byte(a.Element))
		if a.Aromatic {
			h.Write([]byte{1})
		}
		h.Write([]byte{byte(a.Charge + 8), byte(a.Hydrogens), byte(m.Degree(i))})
		ids[i] = h.Sum64()
		fp.set(ids[i])
	}

	// Iteratively widen each environment with sorted neighbor identifiers.
	for r := 1; r <= fingerprintRadius; r++ {
		next := make([]uint64, len(ids))
		for i := range m.atoms {
			env := make([]uint64, 0, m.Degree(i))
			for _, bi := range m.adjacency[i] {
				b := m.bonds[bi]
				env = append(env, uint64(b.Order)<<56^ids[b.other(i)])
			}
			sort.Slice(env, func(a, b int) bool { return env[a] < env[b] })
			h := fnv.New64a()
			writeU64(h, ids[i])
			for _, e := range env {
				writeU64(h, e)
			}
			next[i] = h.Sum64()
			fp.set(next[i])
		}
		ids = next
	}
	return fp
}

func (fp *Fingerprint) set(h uint64) {
	bit := h % FingerprintBits
	fp[bit/64] |= 1 << (bit % 64)
}

// PopCount returns the number of set bits.
func (fp Fingerprint) PopCount() int {
	n := 0
	for _, w := range fp {
		n += bits.OnesCount64(w)
	}
	return n
}

// Tanimoto returns |A∩B| / |A∪B| for two fingerprints; identical non-empty
// fingerprints score 1.0 and two empty fingerprints score 0.
func Tanimoto(a, b Fingerprint) float64 {
	inter, union := 0, 0
	for i := range a {
		inter += bits.OnesCount64(a[i] & b[i])
		union += bits.OnesCount64(a[i] | b[i])
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func writeU64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}
