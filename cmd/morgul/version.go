package main

import (
	"fmt"

	"github.com/morguldev/morgul/internal/version"
)

type versionCmd struct{}

func (v *versionCmd) Run(g *globals) error {
	fmt.Printf("morgul %s (%s, built %s)\n", version.Version, version.Commit, version.Date)
	return nil
}
