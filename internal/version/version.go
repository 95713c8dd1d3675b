// Package version provides the build version of the tools
package version

import (
	"fmt"
	"runtime"
)

// set by the linker with -X
var (
	version = "0.0.0"
	commit  = "dev"
)

// Info describes the build
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Runtime string `json:"runtime"`
}

// Current returns the version of the build
func Current() Info {
	return Info{
		Version: version,
		Commit:  commit,
		Runtime: runtime.Version(),
	}
}

func (v Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", v.Version, v.Commit, v.Runtime)
}
