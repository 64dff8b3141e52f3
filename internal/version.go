package internal

var (
	Version = "0.3.0"
	Commit  = ""
	Date    = ""
)

// FullVersion returns the version along with the commit it was built from,
// when that was set at build time.
func FullVersion() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
