package hudi

import (
	"regexp"
	"sort"
	"strconv"

	json "github.com/tablemesh/tablemesh/internal/codec"
)

const (
	timelineDir    = ".hoodie"
	propertiesFile = ".hoodie/hoodie.properties"
	schemaFile     = ".hoodie/schema.avsc"
)

var instantRe = regexp.MustCompile(`^(\d+)\.(commit|deltacommit)$`)

// Instant identifies one completed write on the timeline. instantOrd parses
// its Timestamp as an integer, Hudi's own total order.
type Instant struct {
	Timestamp string
	Kind      string // "commit" (copy-on-write) or "deltacommit" (merge-on-read)
	Path      string
}

// ParseInstantName reports whether name is a completed commit/deltacommit
// instant file (not .requested/.inflight), returning its parsed form.
func ParseInstantName(name string) (Instant, bool) {
	m := instantRe.FindStringSubmatch(name)
	if m == nil {
		return Instant{}, false
	}
	return Instant{Timestamp: m[1], Kind: m[2]}, true
}

func sortInstants(instants []Instant) {
	sort.Slice(instants, func(i, j int) bool { return instants[i].Timestamp < instants[j].Timestamp })
}

func instantOrd(ts string) int64 {
	n, _ := strconv.ParseInt(ts, 10, 64)
	return n
}

// HoodieWriteStat is one file group's write record within a commit's
// partitionToWriteStats.
type HoodieWriteStat struct {
	FileID          string `json:"fileId"`
	Path            string `json:"path"`
	PrevBaseFile    string `json:"prevBaseFile,omitempty"`
	PartitionPath   string `json:"partitionPath"`
	FileSizeInBytes int64  `json:"fileSizeInBytes"`
	NumWrites       int64  `json:"numWrites"`
}

// CommitMetadata is the JSON body of a completed .commit/.deltacommit
// instant file.
type CommitMetadata struct {
	PartitionToWriteStats map[string][]HoodieWriteStat `json:"partitionToWriteStats"`
	ExtraMetadata         map[string]string            `json:"extraMetadata,omitempty"`
	Operation             string                       `json:"operationType,omitempty"`
}

func parseCommitMetadata(raw []byte) (CommitMetadata, error) {
	var cm CommitMetadata
	if err := json.Unmarshal(raw, &cm); err != nil {
		return CommitMetadata{}, err
	}
	return cm, nil
}

func (cm CommitMetadata) allStats() []HoodieWriteStat {
	var out []HoodieWriteStat
	for _, stats := range cm.PartitionToWriteStats {
		out = append(out, stats...)
	}
	return out
}
