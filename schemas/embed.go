// Package schemas holds the JSON Schema files shipped with the importer.
// The files are embedded at compile time so the binary never depends on the working directory.
package schemas

import (
	"embed"
	"fmt"
)

// ResumeDraftFile is the file name of the schema every extraction response must conform to.
const ResumeDraftFile = "resume_draft.schema.json"

//go:embed *.schema.json
var files embed.FS

// Load returns the raw bytes of an embedded schema file.
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("schema %s not embedded: %w", name, err)
	}
	return data, nil
}

// ResumeDraft returns the fixed résumé draft schema.
func ResumeDraft() []byte {
	data, err := Load(ResumeDraftFile)
	if err != nil {
		panic(err)
	}
	return data
}
