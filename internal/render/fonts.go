package render

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrFontsNotFound means no Cyrillic-capable font pair could be located
// anywhere in the search path.
var ErrFontsNotFound = errors.New("liberation sans fonts not found")

const (
	regularFontFile = "LiberationSans-Regular.ttf"
	boldFontFile    = "LiberationSans-Bold.ttf"
)

// systemFontDirs are checked after any configured directory. Liberation
// Sans ships with most Linux distributions under one of these roots.
var systemFontDirs = []string{
	"/usr/share/fonts/truetype/liberation",
	"/usr/share/fonts/TTF",
	"/usr/share/fonts/liberation-sans",
	"/usr/share/fonts/liberation",
	"/usr/local/share/fonts",
}

// FontPair is the regular and bold faces the PDF layout needs. The two
// files may live in different directories.
type FontPair struct {
	Regular string
	Bold    string
}

// LocateFonts searches the given directories, a project-relative
// fonts/ directory and the known system locations, in that order, and
// returns the first regular and bold Liberation Sans faces found.
func LocateFonts(dirs ...string) (FontPair, error) {
	search := make([]string, 0, len(dirs)+1+len(systemFontDirs))
	search = append(search, dirs...)
	search = append(search, "fonts")
	search = append(search, systemFontDirs...)

	var pair FontPair
	for _, dir := range search {
		if dir == "" {
			continue
		}
		if pair.Regular == "" {
			if p := filepath.Join(dir, regularFontFile); fileExists(p) {
				pair.Regular = p
			}
		}
		if pair.Bold == "" {
			if p := filepath.Join(dir, boldFontFile); fileExists(p) {
				pair.Bold = p
			}
		}
		if pair.Regular != "" && pair.Bold != "" {
			return pair, nil
		}
	}
	return FontPair{}, ErrFontsNotFound
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
