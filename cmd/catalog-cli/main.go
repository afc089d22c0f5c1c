package main

import (
	"github.com/tansive/datacatalog/internal/cli"
)

func main() {
	cli.Execute()
}
