package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the binary program format version.
const WireVersion = 1

// Wire structs keep the CBOR layout independent of the in-memory types.

type wireProgram struct {
	Version int               `cbor:"1,keyasint"`
	Code    []wireInstruction `cbor:"2,keyasint"`
}

type wireInstruction struct {
	Op      uint8  `cbor:"1,keyasint"`
	N       int    `cbor:"2,keyasint,omitempty"`
	Name    string `cbor:"3,keyasint,omitempty"`
	Kind    uint8  `cbor:"4,keyasint,omitempty"`
	Int     int32  `cbor:"5,keyasint,omitempty"`
	Str     string `cbor:"6,keyasint,omitempty"`
	Default bool   `cbor:"7,keyasint,omitempty"`
	Comment string `cbor:"8,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a Program to canonical CBOR bytes. Equal
// programs encode to identical bytes.
func MarshalProgram(p *Program) ([]byte, error) {
	wp := wireProgram{Version: WireVersion, Code: make([]wireInstruction, len(p.code))}
	for i, ins := range p.code {
		wp.Code[i] = wireInstruction{
			Op:      uint8(ins.Op),
			N:       ins.N,
			Name:    ins.Name,
			Kind:    uint8(ins.Value.Kind),
			Int:     ins.Value.Int,
			Str:     ins.Value.Str,
			Default: ins.Default,
			Comment: ins.Comment,
		}
	}
	return cborEncMode.Marshal(wp)
}

// UnmarshalProgram decodes bytes produced by MarshalProgram, rebuilding the
// label and case tables.
func UnmarshalProgram(data []byte) (*Program, error) {
	var wp wireProgram
	if err := cbor.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if wp.Version != WireVersion {
		return nil, fmt.Errorf("bytecode: unsupported program version %d (want %d)", wp.Version, WireVersion)
	}
	p := NewProgram()
	for i, w := range wp.Code {
		if Opcode(w.Op) >= opcodeCount {
			return nil, fmt.Errorf("bytecode: instruction %d: unknown opcode 0x%02X", i, w.Op)
		}
		if ValueKind(w.Kind) > KindString {
			return nil, fmt.Errorf("bytecode: instruction %d: unknown value kind %d", i, w.Kind)
		}
		ins := Instruction{
			Op:      Opcode(w.Op),
			N:       w.N,
			Name:    w.Name,
			Value:   Value{Kind: ValueKind(w.Kind), Int: w.Int, Str: w.Str},
			Default: w.Default,
			Comment: w.Comment,
		}
		if _, err := p.Append(ins); err != nil {
			return nil, fmt.Errorf("bytecode: instruction %d: %w", i, err)
		}
	}
	return p, nil
}
