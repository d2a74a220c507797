package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/sim/tuning"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cats := catalogs.Default()
	cfg, _ := engine.ConfigFromTuning(tuning.Defaults(), cats)
	return engine.New(cfg, cats)
}

func record(t *testing.T, dir string) []string {
	t.Helper()
	eng := newEngine(t)
	tl := NewTickLogger(dir)
	al := NewAuditLogger(dir)
	eng.SetTickLogger(tl)
	eng.SetAuditLogger(al)

	var digests []string
	steps := [][]engine.Envelope{
		{{PlayerID: 1, Command: protocol.PlantCrop{Y: 2, X: 2, Crop: catalogs.CropCarrot}}},
		{{PlayerID: 1, Command: protocol.PlaceStructure{Y: 4, X: 4, Structure: catalogs.StructureSprinkler}}},
		nil,
		{{PlayerID: 2, Command: protocol.DropItem{Y: 1, X: 1, Item: catalogs.ItemCarrotSeed, Amount: 1}}},
		{{PlayerID: 1, Command: protocol.HarvestCrop{Y: 2, X: 2}}},
	}
	for _, envs := range steps {
		_, d := eng.StepOnce(0.1, envs)
		digests = append(digests, d)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close ticks: %v", err)
	}
	if err := al.Close(); err != nil {
		t.Fatalf("close audit: %v", err)
	}
	return digests
}

func TestTickLog_RoundTripAndReplay(t *testing.T) {
	dir := t.TempDir()
	want := record(t, dir)

	replay := newEngine(t)
	n := 0
	err := ReadTicks(dir, func(e engine.TickLogEntry) error {
		if e.Digest != want[n] {
			t.Fatalf("tick %d: logged digest %s want %s", e.Tick, e.Digest, want[n])
		}
		got, err := replay.Replay(e)
		if err != nil {
			return err
		}
		if got != e.Digest {
			t.Fatalf("tick %d: replay digest %s want %s", e.Tick, got, e.Digest)
		}
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(want) {
		t.Fatalf("read %d ticks want %d", n, len(want))
	}
}

func TestJournals_MatchSchemas(t *testing.T) {
	dir := t.TempDir()
	record(t, dir)

	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		s, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", name))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}
	check := func(s *jsonschema.Schema, dir string) int {
		t.Helper()
		files, err := Files(dir)
		if err != nil {
			t.Fatalf("list %s: %v", dir, err)
		}
		n := 0
		for _, p := range files {
			err := ReadLines(p, func(line []byte) error {
				var v any
				if err := json.Unmarshal(line, &v); err != nil {
					return err
				}
				n++
				return s.Validate(v)
			})
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
		}
		return n
	}

	if n := check(compile("tick_log.schema.json"), TickDir(dir)); n != 5 {
		t.Fatalf("tick lines=%d", n)
	}
	if n := check(compile("audit.schema.json"), AuditDir(dir)); n == 0 {
		t.Fatalf("no audit lines")
	}

	var actions []string
	_ = ReadAudit(dir, func(e engine.AuditEntry) error {
		actions = append(actions, e.Action)
		return nil
	})
	if len(actions) < 2 || actions[0] != "REMOVE_ITEM_FROM_INVENTORY" || actions[1] != "ADD_CROP" {
		t.Fatalf("actions %v", actions)
	}
}

func TestJournal_RotatesHourlyAndReopens(t *testing.T) {
	dir := t.TempDir()
	j := newJournal(dir, "ticks")
	at := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	j.now = func() time.Time { return at }

	write := func(tick int) {
		t.Helper()
		if err := j.appendJSON(map[string]int{"tick": tick}); err != nil {
			t.Fatalf("append %d: %v", tick, err)
		}
	}
	write(0)
	at = at.Add(2 * time.Minute)
	write(1)
	at = at.Add(-2 * time.Minute)
	write(2)
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "ticks-2024-05-01-10.jsonl.zst" {
		t.Fatalf("files %v", files)
	}
	var got []int
	for _, p := range files {
		err := ReadLines(p, func(line []byte) error {
			var v map[string]int
			if err := json.Unmarshal(line, &v); err != nil {
				return err
			}
			got = append(got, v["tick"])
			return nil
		})
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("lines %v", got)
	}
}
