package indexer

// Chunk is one passage cut from a guideline document.
type Chunk struct {
	Index       int    // Position within the document, starts at 0
	HeadingPath string // Format: "# Heading1 > ## Heading2"
	Text        string
}
