package entities

// BlockName identifies a logical section of a captured invoice page
type BlockName string

const (
	BlockHeader         BlockName = "header"
	BlockSummary        BlockName = "summary"
	BlockDescription    BlockName = "description"
	BlockDetails        BlockName = "details"
	BlockPayments       BlockName = "payments"
	BlockLogs           BlockName = "logs"
	BlockEvents         BlockName = "events"
	BlockMetadata       BlockName = "metadata"
	BlockRecentActivity BlockName = "recent_activity"
)

// Block is a contiguous, trimmed slice of the raw capture
type Block struct {
	Name  BlockName `json:"name"`
	Start int       `json:"start"` // byte offset of the marker in the raw text
	End   int       `json:"end"`   // exclusive byte offset
	Text  string    `json:"text"`
}

// BlockMap maps block names to the block found for them. Absent names were not located.
type BlockMap map[BlockName]Block

// Text returns the trimmed text of the named block, or "" when it is absent
func (m BlockMap) Text(name BlockName) string {
	if b, ok := m[name]; ok {
		return b.Text
	}
	return ""
}

// Has reports whether the named block was located
func (m BlockMap) Has(name BlockName) bool {
	_, ok := m[name]
	return ok
}
