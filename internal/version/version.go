package version

import "runtime/debug"

// Build-time variable (set via ldflags)
var Version = "dev"

// GetVersion returns the ldflags version, or the module version when the
// binary was installed with go install.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return Version
}
