package store

import (
	"testing"
	"time"
)

func TestJSONMap_Value(t *testing.T) {
	m := JSONMap{"topic": "AI news", "count": float64(3)}

	value, err := m.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var scanned JSONMap
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if scanned["topic"] != "AI news" {
		t.Errorf("topic = %v", scanned["topic"])
	}
	if scanned["count"] != float64(3) {
		t.Errorf("count = %v", scanned["count"])
	}
}

func TestJSONMap_NilRoundTrip(t *testing.T) {
	var m JSONMap

	value, err := m.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if value != nil {
		t.Errorf("Value() = %v, want nil", value)
	}

	var scanned JSONMap
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if scanned != nil {
		t.Errorf("Scanned = %v, want nil", scanned)
	}
}

func TestJSONMap_ScanBytes(t *testing.T) {
	var m JSONMap
	if err := m.Scan([]byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if m["k"] != "v" {
		t.Errorf("k = %v", m["k"])
	}
}

func TestJSONMap_ScanUnsupportedType(t *testing.T) {
	var m JSONMap
	if err := m.Scan(42); err == nil {
		t.Fatal("Expected error for unsupported type")
	}
}

func TestTask_IsDeleted(t *testing.T) {
	task := &Task{}
	if task.IsDeleted() {
		t.Error("New task should not be deleted")
	}

	now := time.Now()
	task.DeletedTime = &now
	if !task.IsDeleted() {
		t.Error("Task with DeletedTime should be deleted")
	}
}
