package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarstrings/internal/bytecode"
	"jarstrings/internal/classfile"
	"jarstrings/internal/classfmt"
	"jarstrings/internal/classtest"
)

func decodeMethod(t *testing.T, data []byte, name string) (*classfile.ClassFile, *classfile.Method, []bytecode.Inst) {
	t.Helper()
	cf, err := classfile.Decode(data)
	require.NoError(t, err)
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name != name {
			continue
		}
		insts, err := bytecode.Decode(m.Code, bytecode.Options{Mode: classfmt.ModeStrict})
		require.NoError(t, err)
		return cf, m, insts
	}
	t.Fatalf("method %s not found", name)
	return nil, nil, nil
}

func TestStringRefs(t *testing.T) {
	b := classtest.New("com/example/Mixed")
	hello := b.String("Hello")
	num := b.Integer(42)
	long := b.Long(7)
	cls := b.Class("java/lang/String")
	world := b.String("World")
	b.Method("run", "()V", classtest.Code(
		classtest.LDC(hello),                         // 0
		classtest.LDC(num),                           // 1 skipped: integer
		classtest.Op3(classtest.OpLDC2W, long),       // 2 skipped: long
		classtest.LDC(cls),                           // 3 skipped: class literal
		classtest.Op(classtest.OpPop),                // 4
		classtest.LDCW(world),                        // 5
		classtest.Op3(classtest.OpInvokeStatic, cls), // 6 not a load
		classtest.Op(classtest.OpReturn),             // 7
	))
	cf, _, insts := decodeMethod(t, b.Bytes(), "run")

	type hit struct {
		inst int
		pool uint16
	}
	var got []hit
	for i, idx := range bytecode.StringRefs(cf.Pool, insts) {
		got = append(got, hit{i, idx})
	}
	assert.Equal(t, []hit{{0, hello}, {5, world}}, got)

	// Early break stops the sequence.
	n := 0
	for range bytecode.StringRefs(cf.Pool, insts) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestResolveContext(t *testing.T) {
	b := classtest.New("com/example/Greeter")
	out := b.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	hello := b.String("Hello")
	world := b.String("World")
	println := b.Methodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	b.Method("greet", "()V", classtest.Code(
		classtest.Op3(classtest.OpGetStatic, out),
		classtest.LDC(hello),
		classtest.Op3(classtest.OpInvokeVirtual, println),
		classtest.Op3(classtest.OpGetStatic, out),
		classtest.LDC(world),
		classtest.Op3(classtest.OpInvokeVirtual, println),
		classtest.Op(classtest.OpReturn),
	))
	cf, m, insts := decodeMethod(t, b.Bytes(), "greet")

	ctx := bytecode.ResolveContext(cf, m, insts, 1)
	assert.Equal(t, bytecode.Context{
		Class:       "com.example.Greeter",
		SimpleClass: "Greeter",
		Method:      "greet",
		Descriptor:  "()V",
		Offset:      3,
		NextCall:    "java.io.PrintStream.println:(Ljava/lang/String;)V",
	}, ctx)
	assert.Equal(t, "Greeter.greet()V+3 -> java.io.PrintStream.println:(Ljava/lang/String;)V", ctx.String())

	ctx = bytecode.ResolveContext(cf, m, insts, 4)
	assert.Equal(t, 11, ctx.Offset)
	assert.Equal(t, "java.io.PrintStream.println:(Ljava/lang/String;)V", ctx.PrevCall)
	assert.Equal(t, "java.io.PrintStream.println:(Ljava/lang/String;)V", ctx.NextCall)

	// Out of range degrades to the class and method only.
	ctx = bytecode.ResolveContext(cf, m, insts, 99)
	assert.Equal(t, "Greeter", ctx.SimpleClass)
	assert.Empty(t, ctx.NextCall)
	assert.Zero(t, ctx.Offset)

	assert.NotPanics(t, func() { bytecode.ResolveContext(nil, nil, nil, 0) })
}

func TestAnnotatorsAndCallEdges(t *testing.T) {
	b := classtest.New("A")
	s := b.String("Hi")
	mr := b.Methodref("B", "call", "(Ljava/lang/String;)V")
	b.Method("m", "()V", classtest.Code(
		classtest.LDC(s),
		classtest.Op3(classtest.OpInvokeStatic, mr),
		classtest.Op(classtest.OpReturn),
	))
	cf, _, insts := decodeMethod(t, b.Bytes(), "m")

	text := bytecode.Format(insts, bytecode.LDCAnnotator(cf.Pool), bytecode.InvokeAnnotator(cf.Pool))
	assert.Contains(t, text, `String "Hi"`)
	assert.Contains(t, text, "B.call:(Ljava/lang/String;)V")

	edges := bytecode.CallEdges(cf.Pool, insts)
	require.Len(t, edges, 1)
	assert.Equal(t, bytecode.CallEdge{
		Offset: 2, Index: 1, Kind: "invokestatic", Owner: "B", Name: "call", Descriptor: "(Ljava/lang/String;)V",
	}, edges[0])
}
