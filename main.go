package main

import (
	"github.com/pulibrary/orangetheses/cmd"
)

func main() {
	cmd.Execute()
}
