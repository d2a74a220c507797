package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"farmdustry.io/internal/sim/engine"
)

// Files lists the journal files in dir oldest first. The hour stamp in each
// name sorts lexically.
func Files(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ReadLines decodes every line of one journal file into fn.
func ReadLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), n, err)
		}
	}
	return sc.Err()
}

// ReadTicks streams every tick entry under dataDir in order.
func ReadTicks(dataDir string, fn func(engine.TickLogEntry) error) error {
	files, err := Files(TickDir(dataDir))
	if err != nil {
		return err
	}
	for _, p := range files {
		err := ReadLines(p, func(line []byte) error {
			var e engine.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func ReadAudit(dataDir string, fn func(engine.AuditEntry) error) error {
	files, err := Files(AuditDir(dataDir))
	if err != nil {
		return err
	}
	for _, p := range files {
		err := ReadLines(p, func(line []byte) error {
			var e engine.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
