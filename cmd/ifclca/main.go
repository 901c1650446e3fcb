package main

import "github.com/mvp-joe/ifc-lca/internal/cli"

func main() {
	cli.Execute()
}
