package optimize

// DefaultAcronyms returns the built-in acronym expansion table. Keys are
// matched case-insensitively against whole words; values are the spelled
// out form inserted as "expansion (ACRONYM)".
//
// Callers with domain vocabulary pass their own table via Config instead
// of editing this one.
func DefaultAcronyms() map[string]string {
	return map[string]string{
		"AI":    "artificial intelligence",
		"ML":    "machine learning",
		"API":   "application programming interface",
		"REST":  "representational state transfer",
		"HTTP":  "hypertext transfer protocol",
		"JSON":  "javascript object notation",
		"SQL":   "structured query language",
		"NOSQL": "non-relational database",
	}
}

// DefaultStopWords returns the built-in stop word list used for keyword
// extraction.
func DefaultStopWords() []string {
	return []string{
		"a", "an", "the",
		"is", "are", "was", "were", "be", "been", "being",
		"do", "does", "did",
		"can", "could", "should", "would", "will", "shall", "may", "might",
		"what", "how", "why", "when", "where", "who", "which",
		"of", "in", "on", "at", "to", "for", "with", "about", "from", "by",
		"and", "or", "but", "not", "no",
		"i", "you", "it", "we", "they", "my", "your", "its",
		"this", "that", "these", "those", "there",
		"have", "has", "had",
	}
}

// conjunctions mark multi-clause queries for complexity classification.
var conjunctions = []string{
	"and", "or", "but", "because", "however", "although", "while",
}
