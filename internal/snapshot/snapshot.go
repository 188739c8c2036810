// Package snapshot exports and imports a whole Store as JSONL: one record
// per line holding the kind and the entity's serialized form. Writes are
// atomic (temp file, fsync, rename).
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/satchel/pkg/codec"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// record is the JSONL line shape.
type record struct {
	Kind string     `json:"kind"`
	Form codec.Form `json:"form"`
}

// Export writes every entity of every registered kind to path, kinds in
// registration order and entities in bucket order.
func Export(st types.Store, reg *types.Registry, enc *codec.Encoder, path string) error {
	var lines []json.RawMessage
	for _, k := range reg.Kinds() {
		bucket, err := st.Bucket(k.Name())
		if err != nil {
			return err
		}
		entities, err := bucket.List()
		if err != nil {
			return err
		}
		for _, e := range entities {
			f, err := enc.Encode(e)
			if err != nil {
				return fmt.Errorf("%s %q: %w", k.Name(), e.Name(), err)
			}
			line, err := json.Marshal(record{Kind: k.Name(), Form: f})
			if err != nil {
				return fmt.Errorf("%s %q: %w", k.Name(), e.Name(), err)
			}
			lines = append(lines, line)
		}
	}
	return writeLines(path, lines)
}

// Import reads a JSONL snapshot and puts every record into the store.
// Lines that are not valid JSON are skipped; records that fail schema
// decoding abort the import.
func Import(st types.Store, dec *codec.Decoder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		e, err := dec.DecodeAs(rec.Form, rec.Kind)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		bucket, err := st.Bucket(rec.Kind)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if _, err := bucket.Put(e); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning snapshot: %w", err)
	}
	return nil
}

// writeLines writes records atomically using the temp-file, fsync, rename
// pattern.
func writeLines(path string, lines []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fail("writing record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}
