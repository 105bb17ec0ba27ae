// Command snapshot-diff compares two snapshot exports and reports entity
// drift. Used to verify that restoring an export reproduced the source store
// before decommissioning it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
)

type snapshot struct {
	Version       int               `json:"version"`
	Students      []json.RawMessage `json:"students"`
	Teachers      []json.RawMessage `json:"teachers"`
	Classes       []json.RawMessage `json:"classes"`
	Enrollments   []json.RawMessage `json:"enrollments"`
	Notifications []json.RawMessage `json:"notifications"`
}

type collectionDiff struct {
	Name        string
	SourceCount int
	TargetCount int
	MissingIDs  []string
	ExtraIDs    []string
	ChangedIDs  []string
}

func main() {
	var sourcePath, targetPath string
	flag.StringVar(&sourcePath, "source", "", "Path to the source snapshot JSON")
	flag.StringVar(&targetPath, "target", "", "Path to the restored snapshot JSON")
	flag.Parse()

	if sourcePath == "" || targetPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	source, err := loadSnapshot(sourcePath)
	if err != nil {
		log.Fatalf("failed to load source snapshot: %v", err)
	}
	target, err := loadSnapshot(targetPath)
	if err != nil {
		log.Fatalf("failed to load target snapshot: %v", err)
	}
	if source.Version != target.Version {
		log.Fatalf("snapshot version mismatch: source %d, target %d", source.Version, target.Version)
	}

	diffs := []collectionDiff{
		diffCollection("students", source.Students, target.Students),
		diffCollection("teachers", source.Teachers, target.Teachers),
		diffCollection("classes", source.Classes, target.Classes),
		diffCollection("enrollments", source.Enrollments, target.Enrollments),
		diffCollection("notifications", source.Notifications, target.Notifications),
	}

	drift := 0
	fmt.Println("Snapshot Diff Report")
	fmt.Println("====================")
	for _, d := range diffs {
		status := "OK"
		if len(d.MissingIDs) > 0 || len(d.ExtraIDs) > 0 || len(d.ChangedIDs) > 0 {
			status = "DRIFT"
			drift++
		}
		fmt.Printf("[%s] %s: source=%d target=%d\n", status, d.Name, d.SourceCount, d.TargetCount)
		report("missing in target", d.MissingIDs)
		report("extra in target", d.ExtraIDs)
		report("changed", d.ChangedIDs)
	}

	if drift > 0 {
		fmt.Printf("Collections with drift: %d\n", drift)
		os.Exit(1)
	}
	fmt.Println("Snapshots are identical.")
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func diffCollection(name string, source, target []json.RawMessage) collectionDiff {
	diff := collectionDiff{Name: name, SourceCount: len(source), TargetCount: len(target)}
	sourceByID := indexByID(source)
	targetByID := indexByID(target)

	for id, row := range sourceByID {
		other, ok := targetByID[id]
		if !ok {
			diff.MissingIDs = append(diff.MissingIDs, id)
			continue
		}
		if !rowsEqual(row, other) {
			diff.ChangedIDs = append(diff.ChangedIDs, id)
		}
	}
	for id := range targetByID {
		if _, ok := sourceByID[id]; !ok {
			diff.ExtraIDs = append(diff.ExtraIDs, id)
		}
	}
	return diff
}

func indexByID(rows []json.RawMessage) map[string]json.RawMessage {
	index := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		var keyed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(row, &keyed); err != nil || keyed.ID == "" {
			continue
		}
		index[keyed.ID] = row
	}
	return index
}

func rowsEqual(a, b json.RawMessage) bool {
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(aj, bj)
}

func report(label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	limit := len(ids)
	if limit > 10 {
		limit = 10
	}
	fmt.Printf("  %s (%d): %v\n", label, len(ids), ids[:limit])
}
