package iowriter

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gnames/gnfmt"
	"github.com/gnames/taxtag/pkg/taxtag"
)

// exiftoolReadWriter implements embedded EXIF/IPTC/XMP metadata I/O
// by shelling out to the exiftool binary. It covers the tag families
// taxtag manages: dc:subject keywords, lr:hierarchicalSubject trees,
// and dwc/dcterms properties.
type exiftoolReadWriter struct {
	bin string
	enc gnfmt.Encoder
}

// NewExiftoolReadWriter creates the exiftool-backed metadata backend.
// It fails when the binary is not on PATH, so the CLI can report the
// missing dependency up front instead of per file.
func NewExiftoolReadWriter() (taxtag.MetadataReadWriter, error) {
	bin, err := exec.LookPath("exiftool")
	if err != nil {
		return nil, fmt.Errorf("exiftool not found on PATH: %w", err)
	}
	return &exiftoolReadWriter{bin: bin, enc: gnfmt.GNjson{}}, nil
}

// ReadTags reads the managed tag families from a file. Keyword
// fields arrive as a string for single values and a list otherwise.
func (rw *exiftoolReadWriter) ReadTags(path string) (taxtag.TagSet, error) {
	out, err := exec.Command(rw.bin, "-j", "-G1",
		"-XMP-dc:Subject", "-XMP-lr:HierarchicalSubject",
		"-XMP-dwc:all", "-XMP-dcterms:all",
		path).Output()
	if err != nil {
		return nil, commandError(err)
	}

	var records []map[string]any
	if err = rw.enc.Decode(out, &records); err != nil {
		return nil, fmt.Errorf("parse exiftool output for %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var res taxtag.TagSet
	for key, value := range records[0] {
		group, tag, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		switch {
		case group == "XMP-dc" && tag == "Subject":
			for _, kw := range stringList(value) {
				res = append(res, classifySubject(kw))
			}
		case group == "XMP-lr" && tag == "HierarchicalSubject":
			for _, kw := range stringList(value) {
				res = append(res, taxtag.Tag{
					Namespace: taxtag.NamespaceHierarchical,
					Key:       kw,
				})
			}
		case group == "XMP-dwc" || group == "XMP-dcterms":
			ns := strings.ToLower(strings.TrimPrefix(group, "XMP-"))
			res = append(res, taxtag.Tag{
				Namespace: taxtag.NamespaceDarwinCore,
				Key:       ns + ":" + lowerFirst(tag),
				Value:     fmt.Sprintf("%v", value),
			})
		}
	}
	return res, nil
}

// WriteTags writes the merged tag families back. -overwrite_original
// avoids exiftool's backup copies; tag families not managed by taxtag
// are untouched because they are never passed on the command line.
func (rw *exiftoolReadWriter) WriteTags(path string, tags taxtag.TagSet) error {
	args := []string{"-overwrite_original", "-XMP-dc:Subject=",
		"-XMP-lr:HierarchicalSubject="}

	for _, t := range tags {
		switch t.Namespace {
		case taxtag.NamespaceKeyword, taxtag.NamespaceStructured:
			args = append(args, "-XMP-dc:Subject+="+t.String())
		case taxtag.NamespaceHierarchical:
			args = append(args, "-XMP-lr:HierarchicalSubject+="+t.Key)
		case taxtag.NamespaceDarwinCore:
			ns, term, ok := strings.Cut(t.Key, ":")
			if !ok {
				ns, term = "dwc", t.Key
			}
			args = append(args,
				fmt.Sprintf("-XMP-%s:%s=%s", ns, upperFirst(term), t.Value))
		}
	}
	args = append(args, path)

	if err := exec.Command(rw.bin, args...).Run(); err != nil {
		return commandError(err)
	}
	return nil
}

// commandError surfaces exiftool's stderr, which carries the actual
// reason (unsupported format, permission denied).
func commandError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("exiftool: %s",
			strings.TrimSpace(string(exitErr.Stderr)))
	}
	return err
}

func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		res := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
