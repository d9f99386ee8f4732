package bot

import (
	"errors"
	"strings"
)

const defaultExtension = ".mkv"

var errEmptyName = errors.New("name is empty")

var nameStripper = strings.NewReplacer("/", "", "\\", "", `"`, "", "'", "", "`", "")

// NormalizeName cleans a user supplied file name and gives it a .mkv
// extension when it has none.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(nameStripper.Replace(raw))
	name = strings.Join(strings.Fields(name), " ")
	if strings.Trim(name, ".") == "" {
		return "", errEmptyName
	}
	if !strings.Contains(name, ".") {
		name += defaultExtension
	}
	return name, nil
}
