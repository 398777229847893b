package vte

// parserState is the escape-sequence state machine cursor.
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCSIEntry
	stateCSIParam
	stateCSIIgnore
	stateOSCString
)

// maxSeqLen bounds accumulated parameter/OSC bytes. Sequences growing past
// this are malformed; the parser drops them and returns to ground.
const maxSeqLen = 256

// performer receives decoded terminal actions from the parser.
type performer interface {
	print(r rune)
	execute(b byte)
	csiDispatch(private bool, params []int, final byte)
	escDispatch(b byte)
	oscDispatch(data []byte)
}

// parser is the resumable escape-sequence state machine. It consumes one
// byte at a time, so sequences split across Feed calls parse identically to
// sequences arriving whole.
type parser struct {
	state   parserState
	private bool
	params  []byte
	osc     []byte
	oscEsc  bool // saw ESC inside an OSC string (possible ST terminator)
}

func newParser() *parser {
	return &parser{state: stateGround}
}

// reset returns the parser to ground, discarding any partial sequence.
func (p *parser) reset() {
	p.state = stateGround
	p.private = false
	p.params = p.params[:0]
	p.osc = p.osc[:0]
	p.oscEsc = false
}

// advance feeds a single byte through the state machine. Printable runes are
// decoded by the caller and delivered via advanceRune.
func (p *parser) advance(b byte, perf performer) {
	switch p.state {
	case stateGround:
		switch {
		case b == 0x1b:
			p.reset()
			p.state = stateEscape
		case b < 0x20 || b == 0x7f:
			perf.execute(b)
		default:
			perf.print(rune(b))
		}

	case stateEscape:
		switch b {
		case '[':
			p.state = stateCSIEntry
		case ']':
			p.state = stateOSCString
		case 0x1b:
			// Restart the sequence.
			p.reset()
			p.state = stateEscape
		default:
			switch {
			case b >= 0x20 && b <= 0x2f:
				// Intermediate byte (charset designation and friends); the
				// final byte still belongs to the sequence.
				p.state = stateEscapeIntermediate
			case b >= 0x30 && b <= 0x7e:
				perf.escDispatch(b)
				p.reset()
			default:
				p.reset()
			}
		}

	case stateEscapeIntermediate:
		switch {
		case b >= 0x20 && b <= 0x2f:
			// Further intermediates; keep consuming.
		case b == 0x1b:
			p.reset()
			p.state = stateEscape
		case b < 0x20:
			perf.execute(b)
		default:
			// Final byte of a sequence the emulator does not act on.
			p.reset()
		}

	case stateCSIEntry, stateCSIParam:
		switch {
		case b >= 0x40 && b <= 0x7e:
			perf.csiDispatch(p.private, parseParams(p.params), b)
			p.reset()
		case b == '?' && p.state == stateCSIEntry:
			p.private = true
			p.state = stateCSIParam
		case (b >= '0' && b <= '9') || b == ';':
			p.params = append(p.params, b)
			p.state = stateCSIParam
			if len(p.params) > maxSeqLen {
				p.reset()
			}
		case b == 0x1b:
			p.reset()
			p.state = stateEscape
		case b < 0x20:
			// C0 controls execute even mid-sequence.
			perf.execute(b)
		default:
			// Intermediates and private markers the emulator does not
			// handle; consume through the final byte.
			p.state = stateCSIIgnore
		}

	case stateCSIIgnore:
		switch {
		case b >= 0x40 && b <= 0x7e:
			// Final byte of the ignored sequence.
			p.reset()
		case b == 0x1b:
			p.reset()
			p.state = stateEscape
		case b < 0x20:
			perf.execute(b)
		default:
			p.params = append(p.params, b)
			if len(p.params) > maxSeqLen {
				p.reset()
			}
		}

	case stateOSCString:
		switch {
		case b == 0x07:
			perf.oscDispatch(p.osc)
			p.reset()
		case p.oscEsc:
			if b == '\\' {
				perf.oscDispatch(p.osc)
				p.reset()
			} else {
				// Stray ESC: abandon the string, treat ESC+b as a new sequence.
				p.reset()
				p.state = stateEscape
				p.advance(b, perf)
			}
		case b == 0x1b:
			p.oscEsc = true
		default:
			p.osc = append(p.osc, b)
			if len(p.osc) > maxSeqLen {
				p.reset()
			}
		}
	}
}

// advanceRune delivers a decoded non-ASCII rune. Multi-byte characters only
// print from ground state; inside a sequence they are malformed input.
func (p *parser) advanceRune(r rune, perf performer) {
	if p.state == stateGround {
		perf.print(r)
		return
	}
	p.reset()
}

// parseParams splits accumulated parameter bytes into integers. Empty
// parameters parse as zero, matching terminal convention.
func parseParams(raw []byte) []int {
	if len(raw) == 0 {
		return nil
	}
	var params []int
	n := 0
	for _, b := range raw {
		if b == ';' {
			params = append(params, n)
			n = 0
			continue
		}
		n = n*10 + int(b-'0')
		if n > 0xffff {
			n = 0xffff
		}
	}
	params = append(params, n)
	return params
}
