package store

// NamespaceSelection holds which conversation is active.
const NamespaceSelection = "selection"

// Entry is one key/value pair. Keys are /-separated paths.
type Entry struct {
	Key   string
	Value []byte
}
