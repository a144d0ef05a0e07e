// Package keys names the blob objects a case owns.
package keys

import (
	"fmt"
	"path"
	"strings"
)

const casesRoot = "cases"

// BaseName strips any client-supplied directory from an upload name.
func BaseName(filename string) string {
	name := strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/")
	return path.Base(name)
}

// Stem is the file name without directory or extension.
func Stem(filename string) string {
	base := BaseName(filename)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ChunkObjectName is <stem>_chunk_<index>.txt with a 1-based index.
func ChunkObjectName(filename string, index int) string {
	return fmt.Sprintf("%s_chunk_%d.txt", Stem(filename), index)
}

func SourcePrefix(caseNumber string) string {
	return path.Join(casesRoot, caseNumber, "source") + "/"
}

func ChunksPrefix(caseNumber string) string {
	return path.Join(casesRoot, caseNumber, "chunks") + "/"
}

func SourceKey(caseNumber, filename string) string {
	return SourcePrefix(caseNumber) + BaseName(filename)
}

func ChunkKey(caseNumber, filename string, index int) string {
	return ChunksPrefix(caseNumber) + ChunkObjectName(filename, index)
}

// ValidCaseNumber rejects values that would escape the case's key prefix.
func ValidCaseNumber(caseNumber string) bool {
	c := strings.TrimSpace(caseNumber)
	if c == "" || c == "." || c == ".." {
		return false
	}
	return !strings.ContainsAny(c, `/\`)
}
