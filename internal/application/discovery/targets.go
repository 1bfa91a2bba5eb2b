package discovery

import "strings"

// Target is one curated seed library: a disease indication and the starting
// molecules discovery mode expands when the caller names the indication
// instead of supplying structures.
type Target struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Seeds       []string `json:"seeds"`
}

// targetLibrary holds the built-in indication libraries.  Every seed must
// parse under the engine's grammar; TestTargetSeedsParse enforces that.
var targetLibrary = []Target{
	{
		Name:        "cancer",
		Description: "Anti-proliferative and COX-2 adjacent scaffolds",
		Seeds: []string{
			"CC(C)Cc1ccc(cc1)C(C)C(O)=O",
			"CC(=O)Nc1ccc(O)cc1",
			"C1=CC=C(C=C1)C2=CC(=NN2C3=CC=C(C=C3)S(=O)(=O)N)C(F)(F)F",
			"CN1CCCC1c1cccnc1",
			"c1ccc2c(c1)ccc3c2cccc3",
		},
	},
	{
		Name:        "alzheimer",
		Description: "CNS-oriented small molecules",
		Seeds: []string{
			"CC(=O)Nc1ccc(O)cc1",
			"C1=CC=C(C=C1)C2=CC(=NN2C3=CC=C(C=C3)S(=O)(=O)N)C(F)(F)F",
			"CC(C)Cc1ccc(cc1)C(C)C(O)=O",
			"c1ccc(cc1)C(=O)O",
			"CN1CCCC1c1cccnc1",
		},
	},
	{
		Name:        "malaria",
		Description: "Antiparasitic starting points",
		Seeds: []string{
			"CC(C)Cc1ccc(cc1)C(C)C(O)=O",
			"C1=CC=C(C=C1)C2=CC(=NN2C3=CC=C(C=C3)S(=O)(=O)N)C(F)(F)F",
			"CN1CCCC1c1cccnc1",
			"CC(=O)Nc1ccc(O)cc1",
			"c1ccc(cc1)c1ccccc1",
		},
	},
	{
		Name:        "influenza",
		Description: "Antiviral starting points",
		Seeds: []string{
			"CN1CCCC1c1cccnc1",
			"CC(=O)Nc1ccc(O)cc1",
			"CC(C)Cc1ccc(cc1)C(C)C(O)=O",
			"c1ccc(O)c(O)c1",
			"C1=CC=C(C=C1)C2=CC(=NN2C3=CC=C(C=C3)S(=O)(=O)N)C(F)(F)F",
		},
	},
	{
		Name:        "diabetes",
		Description: "Metabolic-disease starting points",
		Seeds: []string{
			"CC(=O)Nc1ccc(O)cc1",
			"CC(C)Cc1ccc(cc1)C(C)C(O)=O",
			"c1ccc(O)c(O)c1",
			"CN1CCCC1c1cccnc1",
			"CCO",
		},
	},
}

// defaultSeeds is the fallback library used when no indication matches.
var defaultSeeds = []string{
	"CC(=O)Nc1ccc(O)cc1",
	"CCO",
	"CC(C)Cc1ccc(cc1)C(C)C(O)=O",
	"C1=CC=C(C=C1)C2=CC(=NN2C3=CC=C(C=C3)S(=O)(=O)N)C(F)(F)F",
	"CN1CCCC1c1cccnc1",
}

// Targets returns the built-in seed libraries in their declared order.
func Targets() []Target {
	out := make([]Target, len(targetLibrary))
	copy(out, targetLibrary)
	return out
}

// SeedsFor matches a free-form indication name against the library.  A
// library entry matches when its name occurs anywhere in the lowered query
// ("breast cancer" matches "cancer").  Unmatched queries get the default
// library so discovery mode always has somewhere to start.
func SeedsFor(name string) []string {
	q := strings.ToLower(strings.TrimSpace(name))
	for _, t := range targetLibrary {
		if strings.Contains(q, t.Name) {
			return append([]string(nil), t.Seeds...)
		}
	}
	return append([]string(nil), defaultSeeds...)
}
