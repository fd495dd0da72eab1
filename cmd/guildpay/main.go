package main

import "github.com/ManuelReschke/GuildPay/internal/cli"

func main() {
	cli.Execute()
}
