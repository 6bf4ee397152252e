package resources

import (
	"path/filepath"
	"strings"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
}

// ResolveBGM resolves a background music track. The input is tried as a
// literal filesystem path first, then as a filename under the bgm resource
// directories. A miss enumerates every track that is available.
func (r *Resolver) ResolveBGM(name string) (string, error) {
	if fileExists(name) {
		return name, nil
	}

	path, err := r.Path(TypeBGM, name)
	if err == nil {
		return path, nil
	}

	return "", &NotFoundError{
		Resource: "bgm " + name,
		Searched: []string{
			name,
			filepath.Join(r.customRoot, TypeBGM, name),
			filepath.Join(r.defaultRoot, TypeBGM, name),
		},
		Candidates: r.ListBGM(),
	}
}

// ListBGM lists available background music tracks across both roots,
// filtered to audio files.
func (r *Resolver) ListBGM() []string {
	var tracks []string
	for _, f := range r.ListFiles(TypeBGM, "") {
		if audioExtensions[strings.ToLower(filepath.Ext(f))] {
			tracks = append(tracks, f)
		}
	}
	return tracks
}
