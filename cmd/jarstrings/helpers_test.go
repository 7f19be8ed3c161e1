package main

import "jarstrings/internal/bytecode"

func bytecodeOptions() bytecode.Options { return bytecode.Options{} }
