package types

import (
	"path/filepath"
	"strings"
)

// FileCategory groups file types for preference ranking and filtering
type FileCategory string

const (
	CategoryDocument     FileCategory = "document"
	CategorySpreadsheet  FileCategory = "spreadsheet"
	CategoryPresentation FileCategory = "presentation"
	CategoryImage        FileCategory = "image"
	CategoryVideo        FileCategory = "video"
	CategoryAudio        FileCategory = "audio"
)

// categoryExtensions maps each category to its recognized extensions
var categoryExtensions = map[FileCategory][]string{
	CategoryDocument:     {"txt", "md", "markdown", "pdf", "doc", "docx", "rtf", "odt", "html", "htm", "json", "yaml", "yml", "log"},
	CategorySpreadsheet:  {"xls", "xlsx", "csv", "tsv", "ods", "numbers"},
	CategoryPresentation: {"ppt", "pptx", "odp", "key"},
	CategoryImage:        {"png", "jpg", "jpeg", "gif", "bmp", "webp", "svg", "tiff"},
	CategoryVideo:        {"mp4", "mov", "avi", "mkv", "webm", "flv"},
	CategoryAudio:        {"mp3", "wav", "flac", "aac", "ogg", "m4a"},
}

var extensionCategory = func() map[string]FileCategory {
	m := make(map[string]FileCategory)
	for cat, exts := range categoryExtensions {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

// Valid reports whether c is a known category
func (c FileCategory) Valid() bool {
	_, ok := categoryExtensions[c]
	return ok
}

// ExtensionsFor returns the extensions recognized for a category
func ExtensionsFor(c FileCategory) []string {
	exts := categoryExtensions[c]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// CategoryOf returns the category for a file-type tag or file name.
// Unknown types are treated as documents.
func CategoryOf(fileType string) FileCategory {
	ft := NormalizeFileType(fileType)
	if cat, ok := extensionCategory[ft]; ok {
		return cat
	}
	return CategoryDocument
}

// NormalizeFileType turns "Report.XLSX", ".xlsx" or "xlsx" into "xlsx"
func NormalizeFileType(fileType string) string {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	if ext := filepath.Ext(ft); ext != "" {
		ft = ext
	}
	return strings.TrimPrefix(ft, ".")
}
