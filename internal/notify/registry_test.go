package notify

import (
	"testing"
)

type recordingObserver struct {
	added   []Record
	removed []int64
}

func (o *recordingObserver) NotificationsAdded(records []Record) {
	o.added = append(o.added, records...)
}

func (o *recordingObserver) NotificationsRemoved(ids []int64) {
	o.removed = append(o.removed, ids...)
}

func TestRegistryUpsertCreatesOnce(t *testing.T) {
	reg := NewRegistry(0)
	obs := &recordingObserver{}
	reg.SetObserver(obs)

	reg.Upsert(KeyPHOutOfRange, "pH di luar batas", SeverityWarning)
	reg.Upsert(KeyPHOutOfRange, "pH di luar batas", SeverityWarning)

	if reg.Count() != 1 {
		t.Fatalf("expected 1 record, got %d", reg.Count())
	}
	if len(obs.added) != 1 {
		t.Errorf("unchanged upsert must not emit a diff event, got %d adds", len(obs.added))
	}
}

func TestRegistryUpsertUpdatesInPlace(t *testing.T) {
	reg := NewRegistry(0)

	reg.Upsert(KeyPHOutOfRange, "pH 8.0", SeverityWarning)
	reg.Upsert(KeySuhuOutOfRange, "suhu 31", SeverityWarning)

	first := reg.List(0)[0]

	reg.Upsert(KeyPHOutOfRange, "pH 8.5", SeverityWarning)

	list := reg.List(0)
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].ID != first.ID {
		t.Error("update must preserve record ID")
	}
	if list[0].KeyID != KeyPHOutOfRange {
		t.Error("update must preserve record position")
	}
	if list[0].Message != "pH 8.5" {
		t.Errorf("message not updated: %q", list[0].Message)
	}
}

func TestRegistryUpsertEmptyMessageRemoves(t *testing.T) {
	reg := NewRegistry(0)
	obs := &recordingObserver{}
	reg.SetObserver(obs)

	reg.Upsert(KeyPHOutOfRange, "pH 8.0", SeverityWarning)
	reg.Upsert(KeyPHOutOfRange, "", SeverityWarning)

	if reg.Count() != 0 {
		t.Fatalf("expected empty registry, got %d records", reg.Count())
	}
	if len(obs.removed) != 1 {
		t.Fatalf("expected exactly 1 removal, got %d", len(obs.removed))
	}

	// Removing an absent key is a no-op
	reg.Upsert(KeyPHOutOfRange, "", SeverityWarning)
	if len(obs.removed) != 1 {
		t.Error("removal of absent key must not emit events")
	}
}

func TestRegistryNoDuplicateKeys(t *testing.T) {
	reg := NewRegistry(0)

	reg.Upsert(KeyPHOutOfRange, "a", SeverityWarning)
	reg.Upsert(KeyPHOutOfRange, "b", SeverityWarning)
	reg.Upsert(KeyPHOutOfRange, "c", SeverityInfo)

	seen := make(map[string]int)
	for _, r := range reg.List(0) {
		seen[r.KeyID]++
	}
	if seen[KeyPHOutOfRange] != 1 {
		t.Errorf("expected exactly one record per key, got %d", seen[KeyPHOutOfRange])
	}
}

func TestRegistryMonotonicIDs(t *testing.T) {
	reg := NewRegistry(0)

	reg.Upsert("K1", "a", SeverityWarning)
	reg.Upsert("K2", "b", SeverityWarning)
	reg.Upsert("K1", "", SeverityWarning)
	reg.Upsert("K3", "c", SeverityWarning)

	list := reg.List(0)
	var prev int64
	for _, r := range list {
		if r.ID <= prev {
			t.Fatalf("IDs not monotonic: %v", list)
		}
		prev = r.ID
	}
}

func TestRegistryBoundedEviction(t *testing.T) {
	reg := NewRegistry(3)
	obs := &recordingObserver{}
	reg.SetObserver(obs)

	reg.Upsert("K1", "a", SeverityWarning)
	reg.Upsert("K2", "b", SeverityWarning)
	reg.Upsert("K3", "c", SeverityWarning)
	reg.Upsert("K4", "d", SeverityWarning)

	list := reg.List(0)
	if len(list) != 3 {
		t.Fatalf("expected 3 records after eviction, got %d", len(list))
	}
	if list[0].KeyID != "K2" {
		t.Errorf("oldest record should be evicted, head is %s", list[0].KeyID)
	}
	if len(obs.removed) != 1 {
		t.Errorf("eviction should emit removal, got %d", len(obs.removed))
	}
}

func TestRegistryListLimit(t *testing.T) {
	reg := NewRegistry(0)

	for _, k := range []string{"K1", "K2", "K3", "K4", "K5", "K6"} {
		reg.Upsert(k, "m", SeverityInfo)
	}

	list := reg.List(5)
	if len(list) != 5 {
		t.Fatalf("expected 5 records, got %d", len(list))
	}
	if list[0].KeyID != "K2" {
		t.Errorf("limit must keep the most recent records, head is %s", list[0].KeyID)
	}
}

func TestRegistryRemoveByID(t *testing.T) {
	reg := NewRegistry(0)

	reg.Upsert("K1", "a", SeverityWarning)
	reg.Upsert("K2", "b", SeverityWarning)

	id := reg.List(0)[0].ID
	reg.Remove(id)

	if reg.Count() != 1 {
		t.Fatalf("expected 1 record after remove, got %d", reg.Count())
	}
	if reg.List(0)[0].KeyID != "K2" {
		t.Error("wrong record removed")
	}

	// Unknown ID is a no-op
	reg.Remove(9999)
	if reg.Count() != 1 {
		t.Error("remove of unknown ID must be a no-op")
	}
}
