package app

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyQuitUpper     = "Q"
	KeyCtrlC         = "ctrl+c"
	KeySpace         = " "
	KeyUp            = "up"
	KeyDown          = "down"
	KeyJumpLive      = "G"
	KeyEnd           = "end"
	KeyPlayback      = "p"
	KeyPlaybackUpper = "P"
	KeyExport        = "e"
	KeyExportUpper   = "E"
	KeySeekBack      = "left"
	KeySeekForward   = "right"
)
