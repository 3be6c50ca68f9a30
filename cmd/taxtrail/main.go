package main

import "taxtrail/internal/cli"

func main() {
	cli.Execute()
}
