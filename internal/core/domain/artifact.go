package domain

import (
	"path/filepath"
	"strings"
)

// ArtifactName builds the download name for an enhanced document:
// enhanced_<base>.<ext>. The base name keeps its original casing; the
// extension is normalized to lowercase. Binary artifacts keep a pdf/docx
// extension and fall back to docx for anything else; textual results are
// delivered as .txt.
func ArtifactName(originalFilename string, binary bool) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	if base == "" {
		base = "document"
	}
	if !binary {
		return "enhanced_" + base + ".txt"
	}
	ext := NormalizeExtension(originalFilename)
	if ext != "pdf" && ext != "docx" {
		ext = "docx"
	}
	return "enhanced_" + base + "." + ext
}

// ArtifactMime maps the artifact name to the Content-Type used when it is
// served for download.
func ArtifactMime(artifactName string) string {
	switch NormalizeExtension(artifactName) {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}
