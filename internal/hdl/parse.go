// Package hdl implements the lexer and parsers for pin lists and pin
// references.
//
package hdl

import (
	"strconv"

	"github.com/pkg/errors"
)

// BusPinName returns the name of the i-th pin of the given bus.
//
func BusPinName(bus string, i int) string {
	return bus + "[" + strconv.Itoa(i) + "]"
}

type parser struct {
	in   string
	l    *Lexer
	peek *Item
}

func newParser(in string) *parser {
	return &parser{in: in, l: NewLexer(in)}
}

func (p *parser) next() Item {
	if p.peek != nil {
		i := *p.peek
		p.peek = nil
		return i
	}
	return p.l.Lex()
}

func (p *parser) backup(i Item) {
	p.peek = &i
}

func (p *parser) errorf(pos int, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", p.in, pos+1, msg)
}

// ParseIO parses a pin specification string and returns individual pin
// names in a slice, expanding bus declarations to individual pin names.
// For example:
//
//	ParseIO("in[2], sel") // returns []string{"in[0]", "in[1]", "sel"}
//
func ParseIO(names string) ([]string, error) {
	var out []string
	p := newParser(names)

	i := p.next()
	if i.Type == EOF {
		return nil, nil
	}
	for {
		if i.Type != Ident {
			return nil, p.errorf(i.Pos, "expected pin name")
		}
		name := i.Value.(string)
		i = p.next()
		switch i.Type {
		case EOF:
			return append(out, name), nil
		case Comma:
			out = append(out, name)
			i = p.next()
			continue
		case BracketOpen:
		default:
			return nil, p.errorf(i.Pos, "expected bus size specification or comma")
		}
		i = p.next()
		if i.Type != Int {
			return nil, p.errorf(i.Pos, "missing bus size")
		}
		for n, cnt := 0, i.Value.(int); n < cnt; n++ {
			out = append(out, BusPinName(name, n))
		}
		if i = p.next(); i.Type != BracketClose {
			return nil, p.errorf(i.Pos, "missing close bracket")
		}
		i = p.next()
		if i.Type == EOF {
			return out, nil
		}
		if i.Type != Comma {
			return nil, p.errorf(i.Pos, "expected comma or end of input")
		}
		i = p.next()
	}
}

// parseRef parses [component "."] pin ["[" n [".." m] "]"].
//
func (p *parser) parseRef() (comp string, pins []string, bus bool, err error) {
	i := p.next()
	if i.Type != Ident {
		return "", nil, false, p.errorf(i.Pos, "expected component or pin name")
	}
	name := i.Value.(string)
	if i = p.next(); i.Type == Dot {
		comp = name
		if i = p.next(); i.Type != Ident {
			return "", nil, false, p.errorf(i.Pos, "expected pin name")
		}
		name = i.Value.(string)
		i = p.next()
	}
	if i.Type != BracketOpen {
		p.backup(i)
		return comp, []string{name}, false, nil
	}
	i = p.next()
	if i.Type != Int {
		return "", nil, false, p.errorf(i.Pos, "expected bus index")
	}
	start, end := i.Value.(int), i.Value.(int)
	i = p.next()
	if i.Type == Range {
		if i = p.next(); i.Type != Int {
			return "", nil, false, p.errorf(i.Pos, "expected end of bus range")
		}
		end = i.Value.(int)
		bus = true
		i = p.next()
	}
	if i.Type != BracketClose {
		return "", nil, false, p.errorf(i.Pos, "missing close bracket")
	}
	if end < start {
		return "", nil, false, p.errorf(i.Pos, "invalid bus range")
	}
	for n := start; n <= end; n++ {
		pins = append(pins, BusPinName(name, n))
	}
	return comp, pins, bus, nil
}

// A Ref is a parsed pin reference.
//
type Ref struct {
	Comp string   // component name, empty if not specified
	Name string   // pin or bus name as written, without index
	Pins []string // expanded pin names
	Bus  bool     // true if written as a range
}

// ParseRef parses a pin reference of the form "comp.pin", "pin", "comp.bus[3]"
// or "comp.bus[0..7]".
//
func ParseRef(ref string) (Ref, error) {
	p := newParser(ref)
	comp, pins, bus, err := p.parseRef()
	if err != nil {
		return Ref{}, err
	}
	if i := p.next(); i.Type != EOF {
		return Ref{}, p.errorf(i.Pos, "unexpected input after pin reference")
	}
	return Ref{Comp: comp, Name: baseName(pins[0]), Pins: pins, Bus: bus}, nil
}

// ParseWire parses a wire description of the form "from -> to" where from and
// to are pin references.
//
func ParseWire(wire string) (from, to Ref, err error) {
	p := newParser(wire)
	c, pins, bus, err := p.parseRef()
	if err != nil {
		return from, to, err
	}
	from = Ref{Comp: c, Name: baseName(pins[0]), Pins: pins, Bus: bus}
	if i := p.next(); i.Type != Arrow {
		return from, to, p.errorf(i.Pos, "expected ->")
	}
	if c, pins, bus, err = p.parseRef(); err != nil {
		return from, to, err
	}
	to = Ref{Comp: c, Name: baseName(pins[0]), Pins: pins, Bus: bus}
	if i := p.next(); i.Type != EOF {
		return from, to, p.errorf(i.Pos, "unexpected input after wire")
	}
	return from, to, nil
}

func baseName(pin string) string {
	for i := 0; i < len(pin); i++ {
		if pin[i] == '[' {
			return pin[:i]
		}
	}
	return pin
}
