package main

import "github.com/BatmanBruc/sub-pay-bot/internal/cli"

func main() {
	cli.Execute()
}
