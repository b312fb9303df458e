package port

// FileWalker finds listing files under a root directory.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// FileReader returns the full text of one listing.
type FileReader interface {
	ReadFile(path string) (string, error)
}
