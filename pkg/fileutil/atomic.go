// Package fileutil provides file system utilities for snapshot content:
// atomic writes of encoded values, bounded reads and tree copies.
package fileutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Encoding names a serialization format for AtomicWriteAs.
type Encoding string

const (
	JSON Encoding = "json"
	YAML Encoding = "yaml"
	TOML Encoding = "toml"
)

// Marshal encodes v. JSON is indented by two spaces, TOML tables are
// indented like hand-written config files, and the result always ends in a
// newline.
func Marshal(enc Encoding, v any) (data []byte, err error) {
	switch enc {
	case JSON:
		data, err = json.MarshalIndent(v, "", "  ")
	case YAML:
		data, err = marshalYAML(v)
	case TOML:
		var buf bytes.Buffer
		e := toml.NewEncoder(&buf)
		e.SetIndentTables(true)
		err = e.Encode(v)
		data = buf.Bytes()
	default:
		return nil, errors.Newf("unknown encoding %q", enc)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "marshaling %s", strings.ToUpper(string(enc)))
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return data, nil
}

// marshalYAML converts yaml.v3 panics on unsupported types into errors.
func marshalYAML(v any) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("%v", r)
		}
	}()
	return yaml.Marshal(v)
}

// AtomicWrite writes data to path through a synced temp file in the same
// directory that is renamed into place, so readers never see a partial
// file and an interrupted write leaves the previous content intact.
//
// The caller is responsible for ensuring the parent directory exists.
func AtomicWrite(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dotsnapshot-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "setting file permissions")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "syncing temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}
	return nil
}

// AtomicWriteAs encodes v with enc and writes it to path atomically.
func AtomicWriteAs(path string, enc Encoding, v any, perm os.FileMode) error {
	data, err := Marshal(enc, v)
	if err != nil {
		return err
	}
	return AtomicWrite(path, data, perm)
}

// AtomicWriteJSON writes v as indented JSON to path atomically with 0600
// permissions. Snapshot metadata and backup manifests use it.
func AtomicWriteJSON(path string, v any) error {
	return AtomicWriteAs(path, JSON, v, 0o600)
}
