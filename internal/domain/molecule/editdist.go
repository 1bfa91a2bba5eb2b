package molecule

// EditDistance estimates the number of atom-level edits separating two
// molecules.  It compares element multisets and bond counts rather than
// solving graph edit distance exactly, which keeps the metric deterministic
// and cheap: each add_atom, remove_atom or substitute_atom step moves the
// value by at most one.
func EditDistance(a, b *Molecule) float64 {
	counts := make(map[string]int)
	for _, at := range a.atoms {
		counts[at.Element]++
	}
	for _, at := range b.atoms {
		counts[at.Element]--
	}
	elemDiff := 0
	for _, c := range counts {
		if c < 0 {
			c = -c
		}
		elemDiff += c
	}
	bondDiff := a.BondCount() - b.BondCount()
	if bondDiff < 0 {
		bondDiff = -bondDiff
	}
	return float64(elemDiff+bondDiff) / 2
}

// DivergencePercent expresses how far current has drifted from seed as a
// percentage of the larger molecule's heavy atom count, clamped to [0,100].
func DivergencePercent(seed, current *Molecule) float64 {
	max := seed.HeavyAtomCount()
	if c := current.HeavyAtomCount(); c > max {
		max = c
	}
	if max == 0 {
		return 0
	}
	pct := 100 * EditDistance(seed, current) / float64(max)
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
