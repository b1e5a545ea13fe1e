package paths

import (
	"flag"
	"os"
)

var worldDir = flag.String("world_dir", "", "Directory searched first for world files")

// SetupFilePathFlag creates a new string flag with the passed name with a sane
// default for the path to the file, if found using the Find function. If not,
// the flag defaults to an empty string.
//
// The default is computed when the flag is registered, before -world_dir has
// been parsed.
func SetupFilePathFlag(fileName, flagName string, flagPtr *string) {
	flag.StringVar(flagPtr, flagName, Find(fileName), "Path to "+fileName)
}

// WorldDir returns the value of -world_dir, falling back to the first
// directory in SearchDirs that exists.
func WorldDir() string {
	for _, dir := range SearchDirs() {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir
		}
	}
	return "."
}
