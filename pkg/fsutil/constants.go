package fsutil

// File and directory permission constants. These follow standard Unix
// permission conventions and are used consistently throughout the
// application.
const (
	// FileModeDefault is used for regular files (-rw-r--r--).
	FileModeDefault = 0o644
	// FileModeSecure is used for sensitive files (-rw-r-----).
	FileModeSecure = 0o640

	// DirModeDefault is used for directories (drwxr-xr-x).
	DirModeDefault = 0o755
	// DirModeSecure is used for sensitive directories (drwxr-x---).
	DirModeSecure = 0o750
)
