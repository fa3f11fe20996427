package rag

import "strings"

// CollectionName derives the Qdrant collection identifier for a
// (client, embedding model) pair. It is deterministic, and distinct
// embedding models for the same client always map to distinct
// collections, which is what pins a collection to a single vector
// dimensionality.
//
// Path separators in model names (e.g. "sentence-transformers/all-MiniLM-L6-v2")
// are replaced so the result is safe as a storage identifier.
func CollectionName(clientID, embeddingModel string) string {
	return clientID + "_" + sanitize(embeddingModel)
}

func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, "\\", "_")
}
