package main

import "github.com/familylists/realtime/pkg/cli"

func main() {
	cli.Execute(cli.NewRootCommand())
}
