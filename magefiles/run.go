//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Cooks the whole source tree once.
func (Run) Cook() error {
	if _, err := executeCmd("go", withArgs("run", ".", "cook"), withStream()); err != nil {
		return err
	}
	return nil
}

// Watches the source tree and re-cooks files as they change.
func (Run) Watch() error {
	if _, err := executeCmd("go", withArgs("run", ".", "watch"), withStream()); err != nil {
		return err
	}
	return nil
}
