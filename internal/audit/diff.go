package audit

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FieldChange is one field's transition in an update. Old is nil when the
// field did not exist on the old record.
type FieldChange struct {
	Field string
	Old   *string
	New   *string
}

// excludedFields are system-maintained timestamps that change on every write
// and would bury real changes in noise.
var excludedFields = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"deleted_at": {},
}

// DiffEntities compares two snapshots of an entity field by field. Both are
// marshalled through JSON so comparison sees the entity's wire shape, and
// values are canonicalized before comparing: two JSON objects with the same
// keys in different order are equal. Only fields present on the new record
// are examined; a field found only on the old side is not a change. Changes
// come back sorted by field name.
func DiffEntities(oldEntity, newEntity any) ([]FieldChange, error) {
	oldFields, err := entityFields(oldEntity)
	if err != nil {
		return nil, fmt.Errorf("failed to decode old entity: %w", err)
	}
	newFields, err := entityFields(newEntity)
	if err != nil {
		return nil, fmt.Errorf("failed to decode new entity: %w", err)
	}

	var changes []FieldChange
	for _, field := range sortedKeys(newFields) {
		if _, excluded := excludedFields[field]; excluded {
			continue
		}

		newValue := newFields[field]
		oldValue, hasOld := oldFields[field]
		if hasOld && oldValue == newValue {
			continue
		}

		change := FieldChange{Field: field, New: &newValue}
		if hasOld {
			change.Old = &oldValue
		}
		changes = append(changes, change)
	}

	return changes, nil
}

// canonicalSnapshot serializes a whole entity to canonical JSON.
func canonicalSnapshot(entity any) (string, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return "", err
	}
	return canonicalize(raw)
}

// entityFields flattens an entity to its top-level fields with canonical
// JSON values. Round-tripping through a map makes encoding/json emit object
// keys sorted at every nesting level, so value strings compare
// order-insensitively.
func entityFields(entity any) (map[string]string, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(decoded))
	for name, value := range decoded {
		canonical, err := canonicalize(value)
		if err != nil {
			return nil, err
		}
		fields[name] = canonical
	}
	return fields, nil
}

func canonicalize(raw json.RawMessage) (string, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", err
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for name := range fields {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
