package dropbox

import (
	"path"
	"strings"
)

// audioExtensions is the fixed allow-list of playable audio file extensions.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".flac": true,
	".aac":  true,
}

// IsAudioFile reports whether name has a playable audio extension,
// case-insensitively. The empty string is not an audio file.
func IsAudioFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return audioExtensions[ext]
}
