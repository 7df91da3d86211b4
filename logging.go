package departures

import (
	"log"
	"os"
)

// InitLogging sends the standard logger to stdout with microsecond
// timestamps. verbose adds the source file and line.
func InitLogging(verbose bool) {
	log.SetOutput(os.Stdout)
	flags := log.LstdFlags | log.Lmicroseconds
	if verbose {
		flags |= log.Lshortfile
	}
	log.SetFlags(flags)
}
