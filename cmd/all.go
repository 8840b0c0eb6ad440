package cmd

import (
	_ "stackwarden/cmd/root"
	_ "stackwarden/cmd/server"
	_ "stackwarden/cmd/service"
)
