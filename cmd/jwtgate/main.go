package main

import "github.com/layer-3/jwtgate/internal/cli"

func main() {
	cli.Execute()
}
