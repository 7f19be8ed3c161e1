package session_test

import (
	"jarstrings/internal/bytecode"
	"jarstrings/internal/classfmt"
)

func bytecodeOptions() bytecode.Options {
	return bytecode.Options{Mode: classfmt.ModeStrict}
}
