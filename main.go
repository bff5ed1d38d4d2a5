// Package main provides the entry point for rvsim.
// rvsim is a cycle-accurate 5-stage RV32 pipeline simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvsim - 5-stage RV32 pipeline simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: rvsim [options] <program> [cycles] [forward]")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim -h' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}
