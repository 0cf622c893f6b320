package sesame

// Version and Codename are written to opensesame_version and
// opensesame_codename at the start of every run, and to script headers.
var (
	Version  = "0.4.0"
	Codename = "Ribbon"
)
