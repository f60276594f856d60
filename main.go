package main

import (
	"github.com/mj1618/desktop-ax/cmd"

	_ "github.com/mj1618/desktop-ax/internal/platform/darwin"
)

func main() {
	cmd.Execute()
}
