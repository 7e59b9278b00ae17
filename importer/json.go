package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ImageRecord is one parsed per-image entry from an uploaded detection JSON
// file: the image identity plus zero or one demographic analysis and zero or
// more shoe detections.
type ImageRecord struct {
	Filename       string
	Category       *string
	OriginalWidth  *int
	OriginalHeight *int
	Demographic    *DemographicRecord
	Shoes          []ShoeRecord
}

// DemographicRecord mirrors the analyzer's person output.
type DemographicRecord struct {
	GenderLabel *string
	GenderProb  *float64
	AgeLabel    *string
	AgeProb     *float64
	RaceLabel   *string
	RaceProb    *float64
	Bbox        [4]*float64
}

// ShoeRecord mirrors the analyzer's per-shoe output.
type ShoeRecord struct {
	Brand       *string
	Probability *float64
	Confidence  *float64
	Bbox        [4]*float64
}

type rawImageRecord struct {
	Filename       json.RawMessage `json:"filename"`
	Folder         *string         `json:"folder"`
	OriginalWidth  *int            `json:"original_width"`
	OriginalHeight *int            `json:"original_height"`
	Demographic    json.RawMessage `json:"demographic"`
	Shoes          json.RawMessage `json:"shoes"`
}

type rawLabeled struct {
	Label *string  `json:"label"`
	Prob  *float64 `json:"prob"`
}

type rawDemographic struct {
	Gender *rawLabeled     `json:"gender"`
	Age    *rawLabeled     `json:"age"`
	Race   *rawLabeled     `json:"race"`
	Bbox   json.RawMessage `json:"bbox"`
}

type rawShoe struct {
	Label      json.RawMessage `json:"label"`
	Prob       json.RawMessage `json:"prob"`
	Confidence *float64        `json:"confidence"`
	Bbox       json.RawMessage `json:"bbox"`
}

// ParseRecords parses an uploaded detection JSON file. Two layouts are
// accepted: a plain list of record objects, and the column-oriented
// dict-of-dicts layout some export tools produce
// ({"filename": {"0": "a.jpg", ...}, "shoes": {...}}).
func ParseRecords(data []byte) ([]ImageRecord, error) {
	var rawList []rawImageRecord
	if err := json.Unmarshal(data, &rawList); err == nil {
		return convertRawRecords(rawList)
	}

	rawList, err := pivotColumnOriented(data)
	if err != nil {
		return nil, fmt.Errorf("unrecognized detection JSON layout: %w", err)
	}
	return convertRawRecords(rawList)
}

// pivotColumnOriented turns {"col": {"rowKey": value}} into row records,
// ordering rows by their numeric key.
func pivotColumnOriented(data []byte) ([]rawImageRecord, error) {
	var columns map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, err
	}

	rowKeys := make(map[string]struct{})
	for _, column := range columns {
		for key := range column {
			rowKeys[key] = struct{}{}
		}
	}
	orderedKeys := make([]string, 0, len(rowKeys))
	for key := range rowKeys {
		orderedKeys = append(orderedKeys, key)
	}
	sort.Slice(orderedKeys, func(i, j int) bool {
		a, aErr := strconv.Atoi(orderedKeys[i])
		b, bErr := strconv.Atoi(orderedKeys[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		return orderedKeys[i] < orderedKeys[j]
	})

	records := make([]rawImageRecord, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		rowObject := make(map[string]json.RawMessage, len(columns))
		for name, column := range columns {
			if value, ok := column[key]; ok {
				rowObject[name] = value
			}
		}
		encoded, err := json.Marshal(rowObject)
		if err != nil {
			return nil, err
		}
		var record rawImageRecord
		if err := json.Unmarshal(encoded, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func convertRawRecords(rawList []rawImageRecord) ([]ImageRecord, error) {
	records := make([]ImageRecord, 0, len(rawList))
	for _, raw := range rawList {
		filename := decodeString(raw.Filename)
		if filename == nil || *filename == "" {
			// records with no filename cannot be attached to an image; skip
			continue
		}

		record := ImageRecord{
			Filename:       *filename,
			Category:       raw.Folder,
			OriginalWidth:  raw.OriginalWidth,
			OriginalHeight: raw.OriginalHeight,
		}

		if len(raw.Demographic) > 0 && string(raw.Demographic) != "null" {
			var demo rawDemographic
			if err := json.Unmarshal(raw.Demographic, &demo); err == nil {
				record.Demographic = convertDemographic(demo)
			}
		}

		if len(raw.Shoes) > 0 && string(raw.Shoes) != "null" {
			var shoes []rawShoe
			if err := json.Unmarshal(raw.Shoes, &shoes); err == nil {
				for _, shoe := range shoes {
					record.Shoes = append(record.Shoes, convertShoe(shoe))
				}
			}
		}

		records = append(records, record)
	}
	return records, nil
}

func convertDemographic(demo rawDemographic) *DemographicRecord {
	record := &DemographicRecord{Bbox: decodeBbox(demo.Bbox)}
	if demo.Gender != nil {
		record.GenderLabel = demo.Gender.Label
		record.GenderProb = demo.Gender.Prob
	}
	if demo.Age != nil {
		record.AgeLabel = demo.Age.Label
		record.AgeProb = demo.Age.Prob
	}
	if demo.Race != nil {
		record.RaceLabel = demo.Race.Label
		record.RaceProb = demo.Race.Prob
	}
	return record
}

// convertShoe tolerates the detector's inconsistent shapes: label and prob
// may be scalars or single-element lists, bbox may be a list or a list of
// lists.
func convertShoe(shoe rawShoe) ShoeRecord {
	return ShoeRecord{
		Brand:       firstString(shoe.Label),
		Probability: firstFloat(shoe.Prob),
		Confidence:  shoe.Confidence,
		Bbox:        decodeBbox(shoe.Bbox),
	}
}

func decodeString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	return nil
}

func firstString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return &list[0]
	}
	return nil
}

func firstFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var list []float64
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return &list[0]
	}
	return nil
}

func decodeBbox(raw json.RawMessage) [4]*float64 {
	var bbox [4]*float64
	if len(raw) == 0 {
		return bbox
	}

	var flat []*float64
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		copy(bbox[:], flat)
		return bbox
	}

	var nested [][]*float64
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		copy(bbox[:], nested[0])
	}
	return bbox
}
