package entity

type FileData struct {
	Filename string
	Content  []byte
}

// IngestResult reports how a single document was indexed
type IngestResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Skipped  int    `json:"skipped"`
}
