package main

import "github.com/mvp-joe/schema-sync/internal/cli"

func main() {
	cli.Execute()
}
