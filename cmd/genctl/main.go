package main

import (
	"github.com/tabbas97/hf-codecomplete-server/internal/genctl"
)

func main() {
	genctl.Execute()
}
