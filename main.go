package main

import (
	_ "stackwarden/cmd"
	"stackwarden/cmd/root"
	"stackwarden/internal/logger"
)

func main() {
	defer logger.Sync()
	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}
