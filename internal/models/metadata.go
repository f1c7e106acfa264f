package models

import "encoding/json"

// Metadata is a runtime snapshot reported by the indexer and query services of a project.
// It is never stored with the project; it is attached when a detail view is assembled.
type Metadata struct {
	LastProcessedHeight    int64  `json:"lastProcessedHeight"`
	LastProcessedTimestamp int64  `json:"lastProcessedTimestamp"`
	StartHeight            int64  `json:"startHeight"`
	TargetHeight           int64  `json:"targetHeight"`
	Chain                  string `json:"chain"`
	SpecName               string `json:"specName"`
	GenesisHash            string `json:"genesisHash"`
	IndexerHealthy         bool   `json:"indexerHealthy"`
	IndexerNodeVersion     string `json:"indexerNodeVersion"`
	QueryNodeVersion       string `json:"queryNodeVersion"`
	IndexerStatus          string `json:"indexerStatus"`
	QueryStatus            string `json:"queryStatus"`
}

// LogEntry is a single log line kept for a project.
type LogEntry struct {
	Log string `json:"log"`
}

// ProjectDetails is the read-only detail view of a project.
type ProjectDetails struct {
	*Project
	Metadata *Metadata `json:"metadata"`
	Payg     *Payg     `json:"payg"`
}

// UnmarshalJSON decodes the flattened project fields and the attached snapshots.
// It shadows the promoted (*Project).UnmarshalJSON, which cannot fill a nil embedded pointer.
func (d *ProjectDetails) UnmarshalJSON(data []byte) error {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var aux struct {
		Metadata *Metadata `json:"metadata"`
		Payg     *Payg     `json:"payg"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Project = &p
	d.Metadata = aux.Metadata
	d.Payg = aux.Payg
	return nil
}
