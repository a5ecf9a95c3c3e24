package main

import "zkvault.io/private_inventory/cli"

func main() {
	cli.Execute()
}
