package hudi

import (
	"bufio"
	"bytes"
	"strings"
)

const (
	propRecordKeyFields = "hoodie.table.recordkey.fields"
	propTableType       = "hoodie.table.type"
	propTableName       = "hoodie.table.name"

	tableTypeMergeOnRead = "MERGE_ON_READ"
)

// parseProperties decodes a Java .properties file: "key=value" lines,
// '#' comments, surrounding whitespace trimmed.
func parseProperties(raw []byte) map[string]string {
	out := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		out[strings.TrimSpace(line[:idx])] = strings.TrimSpace(line[idx+1:])
	}
	return out
}

func recordKeyFieldsOf(props map[string]string) []string {
	raw, ok := props[propRecordKeyFields]
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
