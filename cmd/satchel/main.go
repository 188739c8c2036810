// Command satchel is the CLI entry point.
package main

import "github.com/mesh-intelligence/satchel/internal/cli"

func main() {
	cli.Execute()
}
