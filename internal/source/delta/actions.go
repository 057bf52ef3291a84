// Package delta implements the Delta Lake source and target adapters:
// parsing/writing the JSON action log under a table's _delta_log directory.
package delta

import (
	json "github.com/tablemesh/tablemesh/internal/codec"
)

// Action is one line of a Delta commit JSON file. Exactly one field is
// non-nil per action.
type Action struct {
	Add        *AddFile        `json:"add,omitempty"`
	Remove     *RemoveFile     `json:"remove,omitempty"`
	MetaData   *MetaData       `json:"metaData,omitempty"`
	Protocol   *Protocol       `json:"protocol,omitempty"`
	CommitInfo *CommitInfo     `json:"commitInfo,omitempty"`
	Txn        *Txn            `json:"txn,omitempty"`
}

type AddFile struct {
	Path             string            `json:"path"`
	PartitionValues  map[string]string `json:"partitionValues"`
	Size             int64             `json:"size"`
	ModificationTime int64             `json:"modificationTime"`
	DataChange       bool              `json:"dataChange"`
	Stats            string            `json:"stats,omitempty"`
}

type RemoveFile struct {
	Path             string            `json:"path"`
	DeletionTimestamp int64            `json:"deletionTimestamp"`
	DataChange       bool              `json:"dataChange"`
	PartitionValues  map[string]string `json:"partitionValues"`
}

type MetaData struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	SchemaString     string            `json:"schemaString"`
	PartitionColumns []string          `json:"partitionColumns"`
	Configuration    map[string]string `json:"configuration"`
	CreatedTime      int64             `json:"createdTime"`
}

type Protocol struct {
	MinReaderVersion int      `json:"minReaderVersion"`
	MinWriterVersion int      `json:"minWriterVersion"`
	ReaderFeatures   []string `json:"readerFeatures,omitempty"`
	WriterFeatures   []string `json:"writerFeatures,omitempty"`
}

type CommitInfo struct {
	Timestamp int64  `json:"timestamp"`
	Operation string `json:"operation"`
}

type Txn struct {
	AppID    string `json:"appId"`
	Version  int64  `json:"version"`
}

// Stats is the decoded form of AddFile.Stats, itself a JSON-encoded string
// in the action log.
type Stats struct {
	NumRecords int64                 `json:"numRecords"`
	MinValues  map[string]any        `json:"minValues"`
	MaxValues  map[string]any        `json:"maxValues"`
	NullCount  map[string]any        `json:"nullCount"`
}

func parseStats(raw string) (*Stats, error) {
	if raw == "" {
		return nil, nil
	}
	var s Stats
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
