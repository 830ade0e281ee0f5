package entities

// Artifact represents a downloaded and verified source archive
type Artifact struct {
	Name      string
	Version   string
	URL       string // Resolved download URL after template substitution
	Path      string // Path to the downloaded archive
	SourceDir string // Directory the archive was extracted into
	Digest    string // Verified digest in canonical form (sha256:<hex>)
}
