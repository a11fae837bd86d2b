package main

import (
	"github.com/Brownie44l1/rop-api/cmd/server/cmd"
)

func main() {
	cmd.Execute()
}
