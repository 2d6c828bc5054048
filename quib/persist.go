package quib

import (
	"encoding/json"
	"fmt"
	"io"
)

// Human-readable persistence of override records. The engine owns no
// file format beyond this JSON shape; records are opaque tuples of
// (quib name, region, value) to everything else.

type OverrideRecordExport struct {
	Quib  string          `json:"quib"`
	Whole bool            `json:"whole,omitempty"`
	Spans [][2]int        `json:"spans,omitempty"`
	Value json.RawMessage `json:"value"`
}

type exportedNDArray struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func encodeOverrideValue(value any) (json.RawMessage, error) {
	if a, ok := value.(*NDArray); ok {
		return json.Marshal(exportedNDArray{
			Shape: a.Shape(),
			Data:  a.Data(),
		})
	}
	return json.Marshal(value)
}

func decodeOverrideValue(raw json.RawMessage) (any, error) {
	var arrayValue exportedNDArray
	if err := json.Unmarshal(raw, &arrayValue); err == nil && arrayValue.Data != nil {
		return NewNDArray(arrayValue.Shape, arrayValue.Data)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// ExportOverrides enumerates all override records of the graph in a
// stable, deterministic order: quib creation order, then insertion
// order within a quib.
func (self *Graph) ExportOverrides() ([]*OverrideRecordExport, error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	exports := []*OverrideRecordExport{}
	for _, q := range self.quibs {
		for _, record := range q.overrider.records {
			value, err := encodeOverrideValue(record.Value)
			if err != nil {
				return nil, fmt.Errorf("override on %s: %w", q.label(), err)
			}
			exports = append(exports, &OverrideRecordExport{
				Quib:  q.name(),
				Whole: record.Region.IsWhole(),
				Spans: record.Region.Spans(),
				Value: value,
			})
		}
	}
	return exports, nil
}

// ExportOverridesFor enumerates the override records of one quib.
func (self *Graph) ExportOverridesFor(q *Quib) ([]*OverrideRecordExport, error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	exports := []*OverrideRecordExport{}
	for _, record := range q.overrider.records {
		value, err := encodeOverrideValue(record.Value)
		if err != nil {
			return nil, fmt.Errorf("override on %s: %w", q.label(), err)
		}
		exports = append(exports, &OverrideRecordExport{
			Quib:  q.name(),
			Whole: record.Region.IsWhole(),
			Spans: record.Region.Spans(),
			Value: value,
		})
	}
	return exports, nil
}

// WriteOverrides serializes all override records as indented JSON.
func (self *Graph) WriteOverrides(w io.Writer) error {
	exports, err := self.ExportOverrides()
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(exports, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

// LoadOverrides replays a sequence of exported override records.
// Records whose quib cannot be resolved by name fail the whole load
// before any record is applied. The replay becomes a single composite
// undoable history entry. Overlap between loaded records keeps
// last-write-wins by record order.
func (self *Graph) LoadOverrides(exports []*OverrideRecordExport) error {
	resolved := make([]*Quib, len(exports))
	values := make([]any, len(exports))
	for i, export := range exports {
		q, ok := self.QuibByName(export.Quib)
		if !ok {
			return fmt.Errorf("no quib named %q", export.Quib)
		}
		value, err := decodeOverrideValue(export.Value)
		if err != nil {
			return fmt.Errorf("override %d on %q: %w", i, export.Quib, err)
		}
		resolved[i] = q
		values[i] = value
	}

	self.stateLock.Lock()
	commands := []*overrideCommand{}
	events := []*ChangeEvent{}
	for i, export := range exports {
		q := resolved[i]
		region := WholeRegion()
		if !export.Whole {
			region = RegionFromSpans(export.Spans)
		}
		before := q.overrider.snapshot()
		q.overrider.add(OverrideRecord{
			Region: region,
			Value:  values[i],
		})
		after := q.overrider.snapshot()
		commands = append(commands, &overrideCommand{
			quib:   q,
			before: before,
			after:  after,
		})
		events = append(events, q.invalidateLocked(region)...)
	}
	if 0 < len(commands) {
		self.history.push(&historyEntry{commands: commands})
	}
	self.stateLock.Unlock()
	self.fireChangeEvents(events)
	return nil
}

// ReadOverrides parses and replays records serialized by
// WriteOverrides.
func (self *Graph) ReadOverrides(r io.Reader) error {
	encoded, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	exports, err := ParseOverrideRecords(encoded)
	if err != nil {
		return err
	}
	return self.LoadOverrides(exports)
}

func ParseOverrideRecords(encoded []byte) ([]*OverrideRecordExport, error) {
	exports := []*OverrideRecordExport{}
	if err := json.Unmarshal(encoded, &exports); err != nil {
		return nil, err
	}
	return exports, nil
}

func EncodeOverrideRecords(exports []*OverrideRecordExport) ([]byte, error) {
	return json.MarshalIndent(exports, "", "  ")
}
