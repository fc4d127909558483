package main

import (
	"github.com/funcport/funcport/cmd"
)

func main() {
	cmd.Execute()
}
