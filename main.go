// Package main is the entry point for the modimporter CLI.
package main

import "modimporter.dev/pkg/modimporter/cmd"

func main() {
	cmd.Execute()
}
