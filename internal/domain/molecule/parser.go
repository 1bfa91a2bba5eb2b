package molecule

import (
	"strings"

	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

// MaxInputLength bounds accepted line-notation input.
const MaxInputLength = 500

// Parse reads a single-component SMILES-subset string into a validated
// Molecule.  The supported grammar covers the organic subset, aromatic
// lowercase atoms, bracket atoms with hydrogen counts and formal charges,
// branches, explicit bond orders and numeric ring closures.  Multi-component
// input ('.'), stereo markers and isotopes are rejected.
func Parse(input string) (*Molecule, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errors.New(errors.CodeParseEmpty, "empty molecule input")
	}
	if len(trimmed) > MaxInputLength {
		return nil, errors.New(errors.CodeParseEmpty, "molecule input too long").
			WithDetail("limit is 500 characters")
	}

	p := &parser{input: trimmed, ringBonds: make(map[int]ringOpen)}
	if err := p.run(); err != nil {
		return nil, err
	}
	return FromGraph(p.atoms, p.bonds)
}

// MustParse parses input and panics on error.  Intended for tests and
// compiled-in seed libraries only.
func MustParse(input string) *Molecule {
	m, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return m
}

type ringOpen struct {
	atom  int
	order BondOrder // 0 = unspecified
}

type parser struct {
	input     string
	pos       int
	atoms     []Atom
	bonds     []Bond
	prev      int // index of the atom a new atom bonds to; -1 at start
	stack     []int
	pending   BondOrder // explicit bond order awaiting the next atom; 0 = none
	ringBonds map[int]ringOpen
}

func (p *parser) malformed(msg string) error {
	return errors.New(errors.CodeParseMalformed, msg).
		WithDetail(p.input[:p.pos])
}

func (p *parser) run() error {
	p.prev = -1
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.malformed("branch before any atom")
			}
			if p.pending != 0 {
				return p.malformed("bond symbol before branch open")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.malformed("unbalanced branch close")
			}
			if p.pending != 0 {
				return p.malformed("dangling bond symbol")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '-':
			if err := p.setPending(BondSingle); err != nil {
				return err
			}
		case c == '=':
			if err := p.setPending(BondDouble); err != nil {
				return err
			}
		case c == '#':
			if err := p.setPending(BondTriple); err != nil {
				return err
			}
		case c == ':':
			if err := p.setPending(BondAromatic); err != nil {
				return err
			}
		case c >= '1' && c <= '9':
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.input) ||
				!isDigit(p.input[p.pos+1]) || !isDigit(p.input[p.pos+2]) {
				return p.malformed("malformed two-digit ring closure")
			}
			n := int(p.input[p.pos+1]-'0')*10 + int(p.input[p.pos+2]-'0')
			if err := p.ringClosure(n); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		case c == '.':
			return errors.New(errors.CodeParseDisconnected,
				"multi-component input is not supported")
		default:
			if err := p.bareAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.stack) > 0 {
		return p.malformed("unbalanced branch open")
	}
	if p.pending != 0 {
		return p.malformed("dangling bond symbol")
	}
	if len(p.ringBonds) > 0 {
		return p.malformed("unclosed ring bond")
	}
	if len(p.atoms) == 0 {
		return errors.New(errors.CodeParseEmpty, "input contains no atoms")
	}
	return nil
}

func (p *parser) setPending(order BondOrder) error {
	if p.prev < 0 || p.pending != 0 {
		return p.malformed("misplaced bond symbol")
	}
	p.pending = order
	p.pos++
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// bareAtom reads an unbracketed organic-subset atom at the cursor.
func (p *parser) bareAtom() error {
	c := p.input[p.pos]
	// Two-letter symbols first.
	if c == 'C' && p.pos+1 < len(p.input) && p.input[p.pos+1] == 'l' {
		p.pos += 2
		return p.addAtom(Atom{Element: "Cl"})
	}
	if c == 'B' && p.pos+1 < len(p.input) && p.input[p.pos+1] == 'r' {
		p.pos += 2
		return p.addAtom(Atom{Element: "Br"})
	}
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.pos++
		return p.addAtom(Atom{Element: string(c)})
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.pos++
		return p.addAtom(Atom{
			Element:  strings.ToUpper(string(c)),
			Aromatic: true,
		})
	}
	return p.malformed("unexpected character")
}

// bracketAtom reads a [symbol H<n> +/-<n>] atom at the cursor.
func (p *parser) bracketAtom() error {
	end := strings.IndexByte(p.input[p.pos:], ']')
	if end < 0 {
		return p.malformed("unterminated bracket atom")
	}
	body := p.input[p.pos+1 : p.pos+end]
	p.pos += end + 1
	if body == "" {
		return p.malformed("empty bracket atom")
	}

	a := Atom{hydrogensExplicit: true}
	i := 0
	// Element symbol: uppercase plus optional lowercase, or a lowercase
	// aromatic symbol.
	switch {
	case body[i] >= 'A' && body[i] <= 'Z':
		sym := string(body[i])
		i++
		if i < len(body) && body[i] >= 'a' && body[i] <= 'z' && body[i] != 'h' {
			if KnownElement(sym + string(body[i])) {
				sym += string(body[i])
				i++
			}
		}
		a.Element = sym
	case body[i] >= 'a' && body[i] <= 'z':
		a.Element = strings.ToUpper(string(body[i]))
		a.Aromatic = true
		i++
	default:
		return p.malformed("bracket atom must start with an element symbol")
	}
	if !KnownElement(a.Element) {
		return errors.New(errors.CodeParseMalformed, "unknown element").
			WithDetail(a.Element)
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.Hydrogens = 1
		if i < len(body) && isDigit(body[i]) {
			a.Hydrogens = int(body[i] - '0')
			i++
		}
	}
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		i++
		mag := 1
		if i < len(body) && isDigit(body[i]) {
			mag = int(body[i] - '0')
			i++
		}
		a.Charge = sign * mag
	}
	if i != len(body) {
		return p.malformed("unsupported bracket atom syntax")
	}
	return p.addAtom(a)
}

// addAtom appends the atom and bonds it to the previous atom.
func (p *parser) addAtom(a Atom) error {
	idx := len(p.atoms)
	p.atoms = append(p.atoms, a)
	if p.prev >= 0 {
		order := p.pending
		if order == 0 {
			order = p.defaultOrder(p.prev, idx)
		}
		p.bonds = append(p.bonds, Bond{A: p.prev, B: idx, Order: order})
	} else if p.pending != 0 {
		return p.malformed("bond symbol before first atom")
	}
	p.pending = 0
	p.prev = idx
	return nil
}

// defaultOrder is aromatic between two aromatic atoms, single otherwise.
func (p *parser) defaultOrder(i, j int) BondOrder {
	if p.atoms[i].Aromatic && p.atoms[j].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

// ringClosure opens or closes the numbered ring bond at the current atom.
func (p *parser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.malformed("ring closure before any atom")
	}
	open, ok := p.ringBonds[n]
	if !ok {
		p.ringBonds[n] = ringOpen{atom: p.prev, order: p.pending}
		p.pending = 0
		return nil
	}
	delete(p.ringBonds, n)
	if open.atom == p.prev {
		return p.malformed("ring closure bonds atom to itself")
	}
	order := open.order
	switch {
	case order == 0:
		order = p.pending
	case p.pending != 0 && p.pending != order:
		return p.malformed("conflicting ring closure bond orders")
	}
	if order == 0 {
		order = p.defaultOrder(open.atom, p.prev)
	}
	p.bonds = append(p.bonds, Bond{A: open.atom, B: p.prev, Order: order})
	p.pending = 0
	return nil
}
