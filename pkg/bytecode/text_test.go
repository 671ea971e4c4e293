package bytecode

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const sampleText = `GOTO start<<0>>
LABEL Read
READ
RETURN
LABEL Write
LOAD 0 dummyFormal
WRITE
RETURN
LABEL start<<0>>
LIT 0 x
LIT 'a' c
LIT "two words" s
SWITCH 1
CASE 1 'a'
GOTO switchend<<1>>
CASE 1 default
LABEL switchend<<1>>
LOAD 0 x
ARGS 1
CALL Write
STORE 0 x
BOP !=
DUMP ON
POP 3
HALT
`

func TestTextRoundTrip(t *testing.T) {
	p, err := ParseText(sampleText)
	be.Err(t, err, nil)
	be.Equal(t, p.Len(), 25)
	be.Equal(t, p.Text(), sampleText)
}

func TestLoadTextOperands(t *testing.T) {
	p, err := ParseText(sampleText)
	be.Err(t, err, nil)

	ins, _ := p.At(5)
	be.Equal(t, ins, Load(0, "dummyFormal"))

	ins, _ = p.At(11)
	be.Equal(t, ins.Value, StringValue("two words"))
	be.Equal(t, ins.Comment, "s")

	ins, _ = p.At(13)
	be.Equal(t, ins, Case(1, CharValue('a')))

	ins, _ = p.At(15)
	be.Equal(t, ins, CaseDefault(1))

	ins, _ = p.At(22)
	be.Equal(t, ins, Dump(true))

	addr, err := p.ResolveCase(1, CharValue('z'))
	be.Err(t, err, nil)
	be.Equal(t, addr, 16)
}

func TestLoadTextIsCaseInsensitiveAndSkipsComments(t *testing.T) {
	src := `
; header comment
goto done
  label   done   ; trailing
Lit 5
dump off
halt
`
	p, err := ParseText(src)
	be.Err(t, err, nil)
	be.Equal(t, p.Len(), 5)

	addr, err := p.Resolve("done")
	be.Err(t, err, nil)
	be.Equal(t, addr, 2)

	ins, _ := p.At(2)
	be.Equal(t, ins, Lit(IntValue(5), ""))
	ins, _ = p.At(3)
	be.Equal(t, ins, Dump(false))
}

func TestLoadTextErrorsCarryLineNumbers(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"HALT\nFROB 1", "line 2: unknown opcode"},
		{"LIT", "line 1: LIT: missing operand"},
		{"ARGS x", "line 1: ARGS: bad count"},
		{"GOTO a b", "line 1: GOTO takes 1 operand(s), got 2"},
		{"BOP %", "line 1: BOP: unknown operator"},
		{"DUMP maybe", "line 1: DUMP: want ON or OFF"},
		{"LIT \"open", "line 1: unterminated literal"},
		{"LABEL a\nLABEL a", "line 2: duplicate label"},
		{"CASE 0", "line 1: CASE takes 2 operand(s)"},
		{"HALT now", "line 1: HALT takes 0 operand(s)"},
	}
	for _, tt := range tests {
		_, err := LoadText(strings.NewReader(tt.src))
		be.Err(t, err, tt.want)
	}
}
